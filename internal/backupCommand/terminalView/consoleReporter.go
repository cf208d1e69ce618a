package terminalView

import (
	"fmt"
	"glbackup/internal/backup"
	"glbackup/internal/color"
	"glbackup/internal/gitlab"
	"io"
)

// ConsoleReporter feeds the view model and reports every group and project.
// With live set the report lines are queued for ReportLinesView, which prints
// them above the redrawn progress; otherwise they go straight to stdout.
type ConsoleReporter struct {
	viewModel *BackupViewModel
	stdout    io.Writer
	live      bool
}

func NewConsoleReporter(vm *BackupViewModel, stdout io.Writer, live bool) *ConsoleReporter {
	return &ConsoleReporter{
		viewModel: vm,
		stdout:    stdout,
		live:      live,
	}
}

func (c *ConsoleReporter) GroupStarted(group *gitlab.Group, dir string, projectCount int) {
	c.viewModel.GroupCount.Inc()
	c.viewModel.ProjectCount.Add(projectCount)
	c.printf("\nGroup %s (ID: %d)\n   Saving to: %s\n   Found %s projects.\n",
		color.FgCyan("%s", group.Name), group.ID, dir, color.FgMagenta("%d", projectCount))
}

func (c *ConsoleReporter) GroupFailed(groupID string, err error) {
	c.viewModel.GroupCount.Inc()
	c.viewModel.GroupFailedCount.Inc()
	c.viewModel.ErrorViewModel.Add(err)
	c.printf("\n%s %s: %v\n", color.FgRed("Failed to access group"), groupID, err)
}

func (c *ConsoleReporter) ProjectStarted(groupName string, projectName string) {
	c.viewModel.SetCurrent(groupName + "/" + projectName)
}

func (c *ConsoleReporter) ProjectFinished(result backup.Result) {
	c.viewModel.SetCurrent("")
	c.viewModel.DoneCount.Inc()
	switch result.Outcome {
	case backup.OutcomeTransferred:
		c.viewModel.TransferredCount.Inc()
		c.printf("   %s %s (%.2fs)\n", color.FgGreen("saved"), result.Project, result.Duration.Seconds())
	case backup.OutcomeSkipped:
		c.viewModel.SkippedCount.Inc()
		c.printf("   %s %s: %v\n", color.FgYellow("skipped"), result.Project, result.Err)
	default:
		c.viewModel.FailedCount.Inc()
		c.viewModel.ErrorViewModel.Add(fmt.Errorf("%s/%s: %w", result.Group, result.Project, result.Err))
		c.printf("   %s %s: %v\n", color.FgRed("failed"), result.Project, result.Err)
	}
}

func (c *ConsoleReporter) PublishFailed(key string, err error) {
	c.viewModel.ErrorViewModel.Add(fmt.Errorf("upload of %s: %w", key, err))
	c.printf("   %s %s: %v\n", color.FgRed("upload failed"), key, err)
}

func (c *ConsoleReporter) printf(format string, a ...any) {
	text := fmt.Sprintf(format, a...)
	if c.live {
		c.viewModel.AppendLines(text)
		return
	}
	_, _ = fmt.Fprint(c.stdout, text)
}
