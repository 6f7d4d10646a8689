package cli

import (
	"io"
	"strings"
	"testing"

	pmio "github.com/matzehuels/pathminer/pkg/io"
	"github.com/matzehuels/pathminer/pkg/search"
	"github.com/matzehuels/pathminer/pkg/search/contract"
)

func contractedPath(t *testing.T) *contract.Graph {
	t.Helper()
	g, err := pmio.ReadJSON(strings.NewReader(pathNetwork))
	if err != nil {
		t.Fatalf("ReadJSON() error: %v", err)
	}
	if _, err := search.Prepare(g, search.Defaults()); err != nil {
		t.Fatalf("Prepare() error: %v", err)
	}
	cg, err := contract.Contract(g)
	if err != nil {
		t.Fatalf("Contract() error: %v", err)
	}
	return cg
}

func TestSummarize(t *testing.T) {
	// 0-1-2-3-4-5 with 2, 3 and 5 not expressed in every case.
	s := summarize(contractedPath(t), 2)

	if s.Vertices != 6 {
		t.Errorf("Vertices = %d, want 6", s.Vertices)
	}
	if s.ValidClusters != 2 || s.ExceptionClusters != 3 {
		t.Errorf("clusters = %d valid, %d exceptions, want 2, 3", s.ValidClusters, s.ExceptionClusters)
	}
	if s.ValidVertices != 3 || s.LargestValid != 2 {
		t.Errorf("ValidVertices, LargestValid = %d, %d, want 3, 2", s.ValidVertices, s.LargestValid)
	}
	if len(s.Heaviest) != 2 {
		t.Fatalf("len(Heaviest) = %d, want 2", len(s.Heaviest))
	}
	// Vertex 2 joins {0,1} and reaches {4} only through another exception.
	if s.Heaviest[0].Weight != 3 || s.Heaviest[0].Members[0] != 2 {
		t.Errorf("heaviest = %+v, want vertex 2 with weight 3", s.Heaviest[0])
	}
	if s.Heaviest[1].Weight > s.Heaviest[0].Weight {
		t.Error("Heaviest not sorted by weight")
	}
}

func TestSummarizeTop(t *testing.T) {
	cg := contractedPath(t)
	for _, tt := range []struct{ top, want int }{{0, 0}, {-1, 0}, {10, 3}} {
		if got := len(summarize(cg, tt.top).Heaviest); got != tt.want {
			t.Errorf("summarize(top=%d) listed %d clusters, want %d", tt.top, got, tt.want)
		}
	}
}

func TestContractCommand(t *testing.T) {
	t.Setenv(configEnv, "")
	root := New(io.Discard, LogInfo).RootCommand()
	root.SetArgs([]string{"contract", writeNetwork(t), "--top", "1"})
	if err := root.Execute(); err != nil {
		t.Fatalf("contract error: %v", err)
	}
}
