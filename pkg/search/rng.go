package search

import "math/rand/v2"

// DeriveSeed mixes a base seed with task coordinates (seed vertex,
// iteration, construction index) into an independent stream seed, so each
// task draws the same numbers no matter which worker runs it.
func DeriveSeed(base uint64, parts ...uint64) uint64 {
	x := splitmix(base)
	for _, p := range parts {
		x = splitmix(x ^ (p + 0x9e3779b97f4a7c15))
	}
	return x
}

// splitmix is one round of the SplitMix64 finaliser.
func splitmix(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// NewRand returns a PCG generator seeded from base and parts.
func NewRand(base uint64, parts ...uint64) *rand.Rand {
	s := DeriveSeed(base, parts...)
	return rand.New(rand.NewPCG(s, splitmix(s)))
}
