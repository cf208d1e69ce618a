package terminalView

import (
	"glbackup/internal/counter"
	"glbackup/internal/view"
	"strings"
	"sync"
)

type BackupViewModel struct {
	BackupDir        string
	GroupCount       *counter.Counter
	GroupFailedCount *counter.Counter
	ProjectCount     *counter.Counter
	DoneCount        *counter.Counter
	TransferredCount *counter.Counter
	SkippedCount     *counter.Counter
	FailedCount      *counter.Counter
	ErrorViewModel   *view.ErrorViewModel

	mu      sync.Mutex
	current string
	pending []string
}

func NewBackupViewModel(backupDir string, logFilePath string) *BackupViewModel {
	return &BackupViewModel{
		BackupDir:        backupDir,
		GroupCount:       counter.NewCounter(),
		GroupFailedCount: counter.NewCounter(),
		ProjectCount:     counter.NewCounter(),
		DoneCount:        counter.NewCounter(),
		TransferredCount: counter.NewCounter(),
		SkippedCount:     counter.NewCounter(),
		FailedCount:      counter.NewCounter(),
		ErrorViewModel:   view.NewErrorViewModel(logFilePath),
	}
}

// SetCurrent names the project being transferred. Empty when idle.
func (vm *BackupViewModel) SetCurrent(current string) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.current = current
}

func (vm *BackupViewModel) Current() string {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.current
}

// AppendLines queues report lines to be printed above the live progress.
func (vm *BackupViewModel) AppendLines(text string) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.pending = append(vm.pending, strings.Split(strings.TrimSuffix(text, "\n"), "\n")...)
}

// DrainLines returns the queued report lines and forgets them.
func (vm *BackupViewModel) DrainLines() []string {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	lines := vm.pending
	vm.pending = nil
	return lines
}
