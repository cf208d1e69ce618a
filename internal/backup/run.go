package backup

import (
	"path"
	"path/filepath"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// BackupRun is the dated output root of a single invocation.
type BackupRun struct {
	Root string
	Date string
	Mode Mode
}

func NewBackupRun(root string, mode Mode, now time.Time) BackupRun {
	return BackupRun{
		Root: root,
		Date: now.Format(DateLayout),
		Mode: mode,
	}
}

// Dir is <root>/<date>/<mode>.
func (r BackupRun) Dir() string {
	return filepath.Join(r.Root, r.Date, string(r.Mode))
}

func (r BackupRun) GroupDir(groupName string) string {
	return filepath.Join(r.Dir(), safeName(groupName))
}

func (r BackupRun) ProjectPath(groupName, projectName string) string {
	return filepath.Join(r.GroupDir(groupName), r.projectFileName(projectName))
}

// ObjectKey is the slash separated path of a project below the root, used for remote copies.
func (r BackupRun) ObjectKey(groupName, projectName string) string {
	return path.Join(r.Date, string(r.Mode), safeName(groupName), r.projectFileName(projectName))
}

func (r BackupRun) projectFileName(projectName string) string {
	return safeName(projectName) + "." + r.Mode.Extension()
}

// safeName keeps a display name as it is unless it could leave its parent directory.
func safeName(name string) string {
	name = strings.NewReplacer("/", "_", "\\", "_").Replace(strings.TrimSpace(name))
	switch name {
	case "", ".", "..":
		return "_" + name
	}
	return name
}
