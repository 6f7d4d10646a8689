package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Terminal palette (ANSI 256).
var (
	colorAccent = lipgloss.Color("36")
	colorGreen  = lipgloss.Color("35")
	colorAmber  = lipgloss.Color("220")
	colorRed    = lipgloss.Color("167")
	colorBlue   = lipgloss.Color("75")
	colorWhite  = lipgloss.Color("255")
	colorGray   = lipgloss.Color("245")
	colorDim    = lipgloss.Color("240")
)

// Exported styles, shared by the table and list views.
var (
	StyleTitle     = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	StyleHighlight = lipgloss.NewStyle().Foreground(colorAccent)
	StyleLink      = lipgloss.NewStyle().Foreground(colorBlue).Underline(true)
	StyleDim       = lipgloss.NewStyle().Foreground(colorDim)
	StyleValue     = lipgloss.NewStyle().Foreground(colorWhite)
	StyleNumber    = lipgloss.NewStyle().Foreground(colorAccent)
	StyleSuccess   = lipgloss.NewStyle().Foreground(colorGreen)
	StyleWarning   = lipgloss.NewStyle().Foreground(colorAmber)
	StyleError     = lipgloss.NewStyle().Foreground(colorRed)
)

var (
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorAccent)
	styleKey         = lipgloss.NewStyle().Foreground(colorGray).Width(12)
	styleCommand     = lipgloss.NewStyle().Foreground(colorBlue)
)

// status is one kind of status line: an icon and how to colour the icon and
// the text after it.
type status struct {
	icon string
	mark lipgloss.Style
	text lipgloss.Style
}

var (
	statusSuccess = status{"✓", StyleSuccess, lipgloss.NewStyle()}
	statusError   = status{"✗", StyleError, lipgloss.NewStyle()}
	statusWarning = status{"!", StyleWarning, StyleWarning}
	statusInfo    = status{"›", lipgloss.NewStyle().Foreground(colorGray), lipgloss.NewStyle()}
)

func (s status) print(format string, args ...any) {
	fmt.Println(s.mark.Render(s.icon) + " " + s.text.Render(fmt.Sprintf(format, args...)))
}

func printSuccess(format string, args ...any) { statusSuccess.print(format, args...) }
func printError(format string, args ...any) { statusError.print(format, args...) }
func printWarning(format string, args ...any) { statusWarning.print(format, args...) }
func printInfo(format string, args ...any) { statusInfo.print(format, args...) }

// printDetail prints an indented, dimmed line below a status line.
func printDetail(format string, args ...any) {
	fmt.Println("  " + StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile announces a file that was written.
func printFile(path string) {
	fmt.Println("  " + StyleDim.Render("→") + " " + StyleValue.Render(path))
}

func printKeyValue(key, value string) {
	fmt.Println(styleKey.Render(key) + " " + StyleValue.Render(value))
}

// printStats prints the size of the searched network, the solve time and
// whether the results came from the cache, separated by dots.
func printStats(vertexCount, edgeCount int, elapsed time.Duration, cached bool) {
	source := StyleDim.Render("fresh")
	if cached {
		source = StyleSuccess.Render("cached")
	}
	parts := []string{
		StyleDim.Render(fmt.Sprintf("%d vertices", vertexCount)),
		StyleDim.Render(fmt.Sprintf("%d edges", edgeCount)),
		StyleDim.Render(elapsed.Round(time.Millisecond).String()),
		source,
	}
	fmt.Println("  " + strings.Join(parts, StyleDim.Render(" · ")))
}

// printNextStep suggests a follow-up command.
func printNextStep(description, cmd string) {
	fmt.Println(StyleDim.Render(description+":") + " " + styleCommand.Render(cmd))
}

func printNewline() { fmt.Println() }
