package backupCommand

import (
	"bufio"
	"errors"
	"fmt"
	"glbackup/internal/backup"
	"io"
	"strings"
)

var ErrInvalidOption = errors.New("invalid option")

const menu = `
========================================
 SELECT THE BACKUP TYPE
========================================
 [1] SNAPSHOT (ZIP) - current files only (no history)
 [2] MIRROR (GIT)   - complete repository (history and branches)
========================================
`

// PromptMode asks for the backup mode and reads a single line answer.
func PromptMode(in io.Reader, out io.Writer) (backup.Mode, error) {
	if _, err := fmt.Fprint(out, menu+"Enter option (1 or 2): "); err != nil {
		return "", err
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read option: %w", err)
	}

	var mode backup.Mode
	switch strings.TrimSpace(line) {
	case "1":
		mode = backup.ModeSnapshot
	case "2":
		mode = backup.ModeMirror
	default:
		return "", fmt.Errorf("%w %q", ErrInvalidOption, strings.TrimSpace(line))
	}
	_, _ = fmt.Fprintf(out, "\n>> Selected mode: %s\n", strings.ToUpper(mode.String()))
	return mode, nil
}

// resolveMode uses the configured mode and only prompts when none is set.
func resolveMode(configured string, in io.Reader, out io.Writer) (backup.Mode, error) {
	if strings.TrimSpace(configured) != "" {
		return backup.ParseMode(configured)
	}
	return PromptMode(in, out)
}
