package terminalView

import (
	"fmt"
	"glbackup/internal/color"
	"glbackup/internal/ext"
	"glbackup/internal/view"
	"io"
	"strings"
)

// BackupView renders the counters of a running backup.
type BackupView struct {
	viewModel *BackupViewModel
	stdout    io.Writer
}

func NewBackupView(vm *BackupViewModel, stdout io.Writer) *BackupView {
	return &BackupView{
		viewModel: vm,
		stdout:    stdout,
	}
}

func (r *BackupView) Render(width int) (lines int) {
	vm := r.viewModel
	out := fmt.Sprintf(
		"%s\n    %s groups (%s failed), %s/%s projects\n    %s transferred, %s skipped, %s failed\n  <- %s\n",
		color.FgCyan("%s", view.TruncateTextToWidth(width, ext.ReplaceHomeDirWithTilde(vm.BackupDir))),
		color.FgMagenta("%d", vm.GroupCount.Count()),
		color.FgMagenta("%d", vm.GroupFailedCount.Count()),
		color.FgMagenta("%d", vm.DoneCount.Count()),
		color.FgMagenta("%d", vm.ProjectCount.Count()),
		color.FgGreen("%d", vm.TransferredCount.Count()),
		color.FgYellow("%d", vm.SkippedCount.Count()),
		color.FgRed("%d", vm.FailedCount.Count()),
		color.FgCyan("%s", view.TrimTextToWidth(view.IndentedWidth(width, 5), vm.Current())),
	)
	_, err := fmt.Fprint(r.stdout, out)
	if err != nil {
		return 0
	}
	return strings.Count(out, "\n")
}

// NewBackupCommandView stacks the queued report lines, the progress counters, the error footer and the elapsed time.
func NewBackupCommandView(vm *BackupViewModel, stdout io.Writer, timeElapsedView view.View) *view.CompositeView {
	compositeView := view.NewCompositeView(make([]view.View, 0))
	compositeView.AddView(NewReportLinesView(vm, stdout))
	compositeView.AddView(NewBackupView(vm, stdout))
	compositeView.AddFooter(view.NewErrorView(vm.ErrorViewModel, stdout))
	compositeView.AddFooter(timeElapsedView)
	return compositeView
}
