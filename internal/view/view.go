package view

import (
	"fmt"
)

type View interface {
	Render(width int) (lines int)
}

func ansiLineOffset(lines int) string {
	return fmt.Sprintf("\033[%dA", lines)
}
