package view

import (
	"context"
	"fmt"
	"golang.org/x/term"
	"io"
	"time"
)

const refreshRate = 100 * time.Millisecond

func IsTerminal(fd int) bool {
	return term.IsTerminal(fd)
}

// StartTTYRenderLoop redraws r in place until ctx is cancelled, then draws it one final time.
// widthOf is asked for the current terminal width before every frame.
func StartTTYRenderLoop(ctx context.Context, r View, out io.Writer, widthOf func() int) {
	lineCount := r.Render(widthOf())

	ticker := time.NewTicker(refreshRate)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			redraw(r, out, lineCount, widthOf())
			return
		case <-ticker.C:
			lineCount = redraw(r, out, lineCount, widthOf())
		}
	}
}

func redraw(r View, out io.Writer, lineCount int, width int) int {
	if lineCount > 0 {
		if _, err := fmt.Fprint(out, ansiLineOffset(lineCount)); err != nil {
			return lineCount
		}
	}
	return r.Render(width)
}

// TerminalWidth returns a widthOf function for StartTTYRenderLoop reading the size of fd.
func TerminalWidth(fd int) func() int {
	return func() int {
		width, _, err := term.GetSize(fd)
		if err != nil {
			return 0
		}
		return width
	}
}
