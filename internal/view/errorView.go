package view

import (
	"fmt"
	"glbackup/internal/color"
	"glbackup/internal/counter"
	"glbackup/internal/ext"
	"io"
	"strings"
	"sync"
)

type ErrorViewModel struct {
	errorCount  *counter.Counter
	mu          sync.Mutex
	latestError string
	logFilePath string
}

func NewErrorViewModel(logFilePath string) *ErrorViewModel {
	return &ErrorViewModel{
		errorCount:  counter.NewCounter(),
		logFilePath: logFilePath,
	}
}

func (vm *ErrorViewModel) Add(err error) {
	vm.mu.Lock()
	vm.latestError = err.Error()
	vm.mu.Unlock()
	vm.errorCount.Inc()
}

func (vm *ErrorViewModel) Count() int {
	return vm.errorCount.Count()
}

func (vm *ErrorViewModel) LatestError() string {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.latestError
}

type ErrorView struct {
	viewModel *ErrorViewModel
	stdout    io.Writer
}

func NewErrorView(vm *ErrorViewModel, stdout io.Writer) *ErrorView {
	return &ErrorView{
		viewModel: vm,
		stdout:    stdout,
	}
}

func (v ErrorView) Render(width int) int {
	if v.viewModel.Count() == 0 {
		return 0
	}
	out := fmt.Sprintf("--- %s errors ---\n%s\nSee log file:\n%s\n",
		color.FgRed("%d", v.viewModel.Count()),
		TrimTextToWidth(width, v.viewModel.LatestError()),
		color.FgMagenta("%s", TruncateTextToWidth(width, ext.ReplaceHomeDirWithTilde(v.viewModel.logFilePath))))

	_, err := fmt.Fprint(v.stdout, out)
	if err != nil {
		return 0
	}
	return strings.Count(out, "\n")
}
