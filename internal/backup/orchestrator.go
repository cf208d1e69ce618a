package backup

import (
	"context"
	"fmt"
	"github.com/samber/lo"
	"glbackup/internal/ext"
	"glbackup/internal/gitlab"
	. "glbackup/internal/log"
	"glbackup/internal/pipe"
	"os"
	"path"
	"strings"
	"time"
)

const projectChannelBufferSize = 10

// GitLabAPI is the part of the GitLab client the orchestrator depends on.
type GitLabAPI interface {
	Authenticate(ctx context.Context) (*gitlab.User, error)
	FetchGroup(ctx context.Context, groupID string) (*gitlab.Group, error)
	ListGroupProjects(ctx context.Context, groupID int, includeSubgroups bool) ([]gitlab.Project, error)
	FetchProject(ctx context.Context, projectID int) (*gitlab.Project, error)
}

type Options struct {
	IncludeSubgroups   bool
	RateLimitPerSecond int
	Reporter           Reporter
	Recorder           Recorder
	Publisher          Publisher // optional
}

type Summary struct {
	Groups        int
	GroupsFailed  int
	Projects      int
	Transferred   int
	Skipped       int
	Failed        int
	PublishFailed int
}

// Orchestrator walks groups and projects one at a time and hands every project to the Transferer.
type Orchestrator struct {
	api        GitLabAPI
	transferer Transferer
	backupRun  BackupRun
	options    Options
	now        func() time.Time
}

func NewOrchestrator(api GitLabAPI, transferer Transferer, backupRun BackupRun, options Options) *Orchestrator {
	if options.Reporter == nil {
		options.Reporter = nopReporter{}
	}
	if options.Recorder == nil {
		options.Recorder = nopRecorder{}
	}
	return &Orchestrator{
		api:        api,
		transferer: transferer,
		backupRun:  backupRun,
		options:    options,
		now:        time.Now,
	}
}

// Run authenticates and then backs up every group. Only an authentication
// failure or a cancelled context is returned as an error, everything else is
// reported and counted in the Summary.
func (o *Orchestrator) Run(ctx context.Context, groupIDs []string) (Summary, error) {
	user, err := o.api.Authenticate(ctx)
	if err != nil {
		Log.Errorf("Authentication against GitLab failed: %v", err)
		return Summary{}, err
	}
	return o.RunAs(ctx, user, groupIDs)
}

// RunAs backs up every group for a user that has already authenticated.
func (o *Orchestrator) RunAs(ctx context.Context, user *gitlab.User, groupIDs []string) (Summary, error) {
	summary := Summary{}
	claimed := map[string]string{}

	Log.Infof("Backing up %d groups into %s (%s) as %s", len(groupIDs), o.backupRun.Dir(), o.backupRun.Mode, user.Username)
	for _, groupID := range groupIDs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		o.backupGroup(ctx, groupID, claimed, &summary)
	}
	return summary, ctx.Err()
}

func (o *Orchestrator) backupGroup(ctx context.Context, groupID string, claimed map[string]string, summary *Summary) {
	summary.Groups++

	group, err := o.api.FetchGroup(ctx, groupID)
	if err != nil {
		o.groupFailed(groupID, err, summary)
		return
	}

	groupDir := o.backupRun.GroupDir(group.Name)
	if err := os.MkdirAll(groupDir, os.ModePerm); err != nil {
		o.groupFailed(groupID, fmt.Errorf("failed to create directory %s: %w", groupDir, err), summary)
		return
	}

	projects, err := o.api.ListGroupProjects(ctx, group.ID, o.options.IncludeSubgroups)
	if err != nil {
		o.groupFailed(groupID, err, summary)
		return
	}
	Log.Infof("Group %s (%s): %d projects, saving to %s", group.Name, groupID, len(projects), groupDir)
	o.options.Reporter.GroupStarted(group, groupDir, len(projects))

	source := lo.SliceToChannel(len(projects), projects)
	for listed := range pipe.RateLimit(ctx, source, o.options.RateLimitPerSecond, projectChannelBufferSize) {
		summary.Projects++
		result := o.backupProject(ctx, group, listed, claimed)
		switch result.Outcome {
		case OutcomeTransferred:
			summary.Transferred++
		case OutcomeSkipped:
			summary.Skipped++
		default:
			summary.Failed++
		}
		if result.Outcome == OutcomeTransferred && o.options.Publisher != nil {
			if err := o.publish(ctx, result); err != nil {
				summary.PublishFailed++
			}
		}
	}
}

func (o *Orchestrator) groupFailed(groupID string, err error, summary *Summary) {
	summary.GroupsFailed++
	Log.Errorf("Failed to back up group %s: %v", groupID, err)
	o.options.Reporter.GroupFailed(groupID, err)
}

func (o *Orchestrator) backupProject(ctx context.Context, group *gitlab.Group, listed gitlab.Project, claimed map[string]string) Result {
	o.options.Reporter.ProjectStarted(group.Name, listed.Name)
	start := o.now()

	result := Result{Group: group.Name, Project: listed.Name}
	err := o.transferProject(ctx, group, listed, claimed, &result)
	result.Duration = o.now().Sub(start)
	result.Err = err
	result.Outcome = OutcomeOf(err)

	switch result.Outcome {
	case OutcomeTransferred:
		Log.Infof("Backed up %s/%s to %s", group.Name, result.Project, result.Path)
	case OutcomeSkipped:
		Log.Infof("Skipped %s/%s: %v", group.Name, result.Project, err)
	default:
		Log.Errorf("Failed to back up project %s/%s: %v", group.Name, result.Project, err)
	}
	o.options.Recorder.RecordTransfer(o.backupRun.Mode, result.Outcome, result.Duration)
	o.options.Reporter.ProjectFinished(result)
	return result
}

// transferProject claims the destination before transferring, a second project
// resolving to the same path in this run fails instead of replacing the first.
func (o *Orchestrator) transferProject(ctx context.Context, group *gitlab.Group, listed gitlab.Project, claimed map[string]string, result *Result) error {
	project, err := o.api.FetchProject(ctx, listed.ID)
	if err != nil {
		return err
	}
	result.Project = project.Name
	stem := projectFileStem(group, project)
	result.Path = o.backupRun.ProjectPath(group.Name, stem)
	result.Key = o.backupRun.ObjectKey(group.Name, stem)

	if owner, taken := claimed[result.Path]; taken {
		return fmt.Errorf("destination %s is already used by %s in this run", result.Path, owner)
	}
	claimed[result.Path] = ext.FirstNonEmpty(project.PathWithNamespace, group.Name+"/"+project.Name)

	return o.transferer.Transfer(ctx, Target{
		Run:     o.backupRun,
		Group:   *group,
		Project: *project,
		Path:    result.Path,
	})
}

// projectFileStem names a project inside its group directory. Projects of
// subgroups are prefixed with their subgroup path, platform/billing/api
// becomes billing_api.
func projectFileStem(group *gitlab.Group, project *gitlab.Project) string {
	if group.FullPath == "" {
		return project.Name
	}
	rel, ok := strings.CutPrefix(project.PathWithNamespace, group.FullPath+"/")
	if !ok {
		return project.Name
	}
	subgroup := path.Dir(rel)
	if subgroup == "." {
		return project.Name
	}
	return strings.ReplaceAll(subgroup, "/", "_") + "_" + project.Name
}

func (o *Orchestrator) publish(ctx context.Context, result Result) error {
	key := result.Key
	if err := o.options.Publisher.Publish(ctx, key, result.Path); err != nil {
		Log.Errorf("Failed to publish %s: %v", key, err)
		o.options.Reporter.PublishFailed(key, err)
		return err
	}
	Log.Debugf("Published %s", key)
	return nil
}

type nopReporter struct{}

func (nopReporter) GroupStarted(*gitlab.Group, string, int) {}
func (nopReporter) GroupFailed(string, error) {}
func (nopReporter) ProjectStarted(string, string) {}
func (nopReporter) ProjectFinished(Result) {}
func (nopReporter) PublishFailed(string, error) {}

type nopRecorder struct{}

func (nopRecorder) RecordTransfer(Mode, Outcome, time.Duration) {}
