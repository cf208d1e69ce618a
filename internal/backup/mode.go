package backup

import (
	"fmt"
	"strings"
)

// Mode selects the transfer strategy. Its value is also the directory name under the dated root.
type Mode string

const (
	ModeSnapshot Mode = "Snapshot"
	ModeMirror   Mode = "Mirror"
)

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "snapshot", "archive", "zip":
		return ModeSnapshot, nil
	case "2", "mirror", "git":
		return ModeMirror, nil
	}
	return "", fmt.Errorf("invalid backup mode %q, expected snapshot (1) or mirror (2)", s)
}

func (m Mode) Extension() string {
	if m == ModeMirror {
		return "git"
	}
	return "zip"
}

func (m Mode) String() string {
	return string(m)
}
