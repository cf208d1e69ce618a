package view

import (
	"fmt"
	"glbackup/internal/ext"
	"strings"
)

// TruncateTextToWidth Cuts off front of text and adds ellipsis to indicate that text was shortened. Fills lines with spaces.
// A width of 0 or less leaves the text untouched.
func TruncateTextToWidth(width int, out string) string {
	if width <= 0 {
		return out
	}
	lines := strings.Split(out, "\n")
	for i, line := range lines {
		if len(line) > width {
			if width > 3 {
				lines[i] = "..." + line[len(line)-width+3:]
			} else {
				lines[i] = line[len(line)-width:]
			}
		} else {
			lines[i] = fmt.Sprintf("%-*s", width, line)
		}
	}
	out = strings.Join(lines, "\n")
	return out
}

// TrimTextToWidth Cuts off end of every line if longer than width. Fills lines to width with spaces.
// A width of 0 or less leaves the text untouched.
func TrimTextToWidth(width int, out string) string {
	if width <= 0 {
		return out
	}
	lines := strings.Split(out, "\n")
	for i, line := range lines {
		if len(line) > width {
			lines[i] = line[:width]
		} else {
			lines[i] = fmt.Sprintf("%-*s", width, line)
		}
	}
	out = strings.Join(lines, "\n")
	return out
}

// IndentedWidth is the width left for text behind an indent of the given size. It keeps 0 (unlimited) as is.
func IndentedWidth(width int, indent int) int {
	if width <= 0 {
		return 0
	}
	return ext.Max(width-indent, 1)
}
