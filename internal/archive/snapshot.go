package archive

import (
	"context"
	"errors"
	"fmt"
	"glbackup/internal/backup"
	"glbackup/internal/gitlab"
	. "glbackup/internal/log"
	"io"
	"net/http"
	"os"
)

const archiveFormat = "zip"

// ErrEmptyArchive is returned when the server answers with a zero length archive.
var ErrEmptyArchive = errors.New("empty archive")

type ArchiveDownloader interface {
	DownloadArchive(ctx context.Context, projectID int, format string, w io.Writer) (int64, error)
}

// SnapshotTransfer writes the current file tree of a project as <name>.zip.
type SnapshotTransfer struct {
	api ArchiveDownloader
}

func NewSnapshotTransfer(api ArchiveDownloader) *SnapshotTransfer {
	return &SnapshotTransfer{api: api}
}

func (s *SnapshotTransfer) Transfer(ctx context.Context, target backup.Target) error {
	project := target.Project
	if project.EmptyRepo {
		return backup.Skip("empty repository")
	}

	err := s.download(ctx, project.ID, target.Path)
	switch {
	case err == nil:
		return nil
	case gitlab.IsNotFound(err), gitlab.HasStatus(err, http.StatusNotAcceptable), errors.Is(err, ErrEmptyArchive):
		return backup.Skip(fmt.Sprintf("no archive available: %v", err))
	default:
		return err
	}
}

// download streams into a sibling .part file and renames it on success, so a
// failed download never leaves a file under the final name.
func (s *SnapshotTransfer) download(ctx context.Context, projectID int, path string) error {
	partPath := path + ".part"
	file, err := os.Create(partPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", partPath, err)
	}

	written, err := s.api.DownloadArchive(ctx, projectID, archiveFormat, file)
	closeErr := file.Close()
	if err == nil && written == 0 {
		err = ErrEmptyArchive
	}
	if err == nil && closeErr != nil {
		err = fmt.Errorf("failed to write %s: %w", partPath, closeErr)
	}
	if err != nil {
		if removeErr := os.Remove(partPath); removeErr != nil && !os.IsNotExist(removeErr) {
			Log.Errorf("Failed to remove partial archive %s: %v", partPath, removeErr)
		}
		return err
	}

	if err := os.Rename(partPath, path); err != nil {
		return fmt.Errorf("failed to move archive into place at %s: %w", path, err)
	}
	Log.Debugf("Wrote %d bytes to %s", written, path)
	return nil
}
