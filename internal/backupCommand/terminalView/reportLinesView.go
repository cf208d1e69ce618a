package terminalView

import (
	"fmt"
	"io"
)

// clearLine wipes what an earlier frame left on the line.
const clearLine = "\r\033[2K"

// ReportLinesView prints queued report lines once. It returns 0 so the render
// loop does not move the cursor back over them; they scroll up above the frame.
type ReportLinesView struct {
	viewModel *BackupViewModel
	stdout    io.Writer
}

func NewReportLinesView(vm *BackupViewModel, stdout io.Writer) *ReportLinesView {
	return &ReportLinesView{
		viewModel: vm,
		stdout:    stdout,
	}
}

func (v *ReportLinesView) Render(int) int {
	for _, line := range v.viewModel.DrainLines() {
		if _, err := fmt.Fprint(v.stdout, clearLine+line+"\n"); err != nil {
			return 0
		}
	}
	return 0
}
