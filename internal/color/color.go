package color

import "github.com/fatih/color"

var (
	FgRed     = color.New(color.FgRed).SprintfFunc()
	FgGreen   = color.New(color.FgGreen).SprintfFunc()
	FgYellow  = color.New(color.FgYellow).SprintfFunc()
	FgCyan    = color.New(color.FgCyan).SprintfFunc()
	FgMagenta = color.New(color.FgMagenta).SprintfFunc()
)

// Disable turns off escape sequences, used when stdout is not a terminal and in tests.
func Disable() {
	color.NoColor = true
}
