package terminalView

import (
	"fmt"
	"glbackup/internal/backup"
	"glbackup/internal/color"
	"io"
	"strings"
)

const banner = "========================================"

type SummaryView struct {
	summary *backup.Summary
	stdout  io.Writer
}

func NewSummaryView(summary *backup.Summary, stdout io.Writer) *SummaryView {
	return &SummaryView{
		summary: summary,
		stdout:  stdout,
	}
}

func (v *SummaryView) Render(int) int {
	s := v.summary
	var out strings.Builder
	out.WriteString(banner + "\n BACKUP FINISHED\n" + banner + "\n")
	out.WriteString(fmt.Sprintf("%s groups (%s failed), %s projects\n%s transferred, %s skipped, %s failed\n",
		color.FgMagenta("%d", s.Groups),
		color.FgRed("%d", s.GroupsFailed),
		color.FgMagenta("%d", s.Projects),
		color.FgGreen("%d", s.Transferred),
		color.FgYellow("%d", s.Skipped),
		color.FgRed("%d", s.Failed),
	))
	if s.PublishFailed > 0 {
		out.WriteString(fmt.Sprintf("%s uploads failed\n", color.FgRed("%d", s.PublishFailed)))
	}
	_, err := fmt.Fprint(v.stdout, out.String())
	if err != nil {
		return 0
	}
	return strings.Count(out.String(), "\n")
}
