package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"glbackup/internal/backup"
	"glbackup/internal/ext"
	. "glbackup/internal/log"
	"glbackup/internal/sh"
	"os"
	"path/filepath"
	"strings"
)

type Engine string

const (
	// EngineGit shells out to the git command line client.
	EngineGit Engine = "git"
	// EngineGoGit clones in process with go-git.
	EngineGoGit Engine = "go-git"
)

func ParseEngine(s string) (Engine, error) {
	switch Engine(strings.ToLower(strings.TrimSpace(s))) {
	case "", EngineGit:
		return EngineGit, nil
	case EngineGoGit, "gogit":
		return EngineGoGit, nil
	}
	return "", fmt.Errorf("unknown mirror engine %q, expected %q or %q", s, EngineGit, EngineGoGit)
}

type cloneFunc func(ctx context.Context, path string, isBare bool, o *git.CloneOptions) error

// MirrorTransfer writes a bare mirror clone (all refs, no working tree) as <name>.git.
type MirrorTransfer struct {
	token  string
	engine Engine
	runner sh.Runner
	clone  cloneFunc
}

func NewMirrorTransfer(token string, engine Engine) *MirrorTransfer {
	return &MirrorTransfer{
		token:  token,
		engine: engine,
		runner: sh.ExecRunner{Redact: func(s string) string { return RedactToken(s, token) }},
		clone: func(ctx context.Context, path string, isBare bool, o *git.CloneOptions) error {
			_, err := git.PlainCloneContext(ctx, path, isBare, o)
			return err
		},
	}
}

// Transfer never touches an existing destination. Freshness of an existing
// mirror is not checked; it is reported as skipped.
func (m *MirrorTransfer) Transfer(ctx context.Context, target backup.Target) error {
	exists, err := ext.PathExists(target.Path)
	if err != nil {
		return fmt.Errorf("failed to check destination %s: %w", target.Path, err)
	}
	if exists {
		return backup.Skip("destination already exists")
	}
	if target.Project.HTTPURLToRepo == "" {
		return fmt.Errorf("project %s has no http clone URL", target.Project.Name)
	}

	Log.Debugf("Mirroring %s to %s with %s", target.Project.PathWithNamespace, target.Path, m.engine)
	if m.engine == EngineGoGit {
		err = m.cloneInProcess(ctx, target)
	} else {
		err = m.cloneWithGit(ctx, target)
	}
	if err != nil {
		// the destination did not exist before, whatever is there now is from this attempt
		if removeErr := os.RemoveAll(target.Path); removeErr != nil {
			Log.Errorf("Failed to remove incomplete mirror %s: %v", target.Path, removeErr)
		}
		return err
	}
	return nil
}

func (m *MirrorTransfer) cloneWithGit(ctx context.Context, target backup.Target) error {
	cloneURL, err := CredentialURL(target.Project.HTTPURLToRepo, m.token)
	if err != nil {
		return err
	}
	_, err = m.runner.Run(ctx, sh.DirectoryPath(filepath.Dir(target.Path)), "git", "clone", "--mirror", "--quiet", cloneURL, target.Path)
	return err
}

func (m *MirrorTransfer) cloneInProcess(ctx context.Context, target backup.Target) error {
	err := m.clone(ctx, target.Path, true, &git.CloneOptions{
		URL:    target.Project.HTTPURLToRepo,
		Auth:   &http.BasicAuth{Username: CredentialUser, Password: m.token},
		Mirror: true,
	})
	if errors.Is(err, transport.ErrEmptyRemoteRepository) {
		return backup.Skip("empty repository")
	}
	if err != nil {
		return fmt.Errorf("mirror clone of %s failed: %s", target.Project.HTTPURLToRepo, RedactToken(err.Error(), m.token))
	}
	return nil
}
