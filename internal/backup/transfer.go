package backup

import (
	"context"
	"errors"
	"fmt"
	"glbackup/internal/gitlab"
	"time"
)

// ErrSkipped marks a transfer that was deliberately not performed. Wrap it with the reason.
var ErrSkipped = errors.New("skipped")

func Skip(reason string) error {
	return fmt.Errorf("%w: %s", ErrSkipped, reason)
}

type Outcome string

const (
	OutcomeTransferred Outcome = "transferred"
	OutcomeSkipped     Outcome = "skipped"
	OutcomeFailed      Outcome = "failed"
)

func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeTransferred
	case errors.Is(err, ErrSkipped):
		return OutcomeSkipped
	default:
		return OutcomeFailed
	}
}

// Target is everything a Transferer needs to materialize one project.
type Target struct {
	Run     BackupRun
	Group   gitlab.Group
	Project gitlab.Project
	Path    string
}

type Transferer interface {
	Transfer(ctx context.Context, target Target) error
}

type TransfererFunc func(ctx context.Context, target Target) error

func (f TransfererFunc) Transfer(ctx context.Context, target Target) error {
	return f(ctx, target)
}

type Result struct {
	Group    string
	Project  string
	Path     string
	Key      string // Path below the root, slash separated
	Outcome  Outcome
	Err      error
	Duration time.Duration
}

// Publisher copies a finished artifact somewhere else, e.g. object storage.
type Publisher interface {
	Publish(ctx context.Context, key string, localPath string) error
}

// Recorder receives one observation per project transfer.
type Recorder interface {
	RecordTransfer(mode Mode, outcome Outcome, duration time.Duration)
}

type Reporter interface {
	GroupStarted(group *gitlab.Group, dir string, projectCount int)
	GroupFailed(groupID string, err error)
	ProjectStarted(groupName string, projectName string)
	ProjectFinished(result Result)
	PublishFailed(key string, err error)
}
