package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glbackup/internal/gitlab"
)

type fakeAPI struct {
	authErr       error
	groups        map[string]*gitlab.Group
	projects      map[int][]gitlab.Project
	listErr       map[int]error
	fullProjects  map[int]*gitlab.Project
	fetchedGroups []string
}

func (f *fakeAPI) Authenticate(context.Context) (*gitlab.User, error) {
	if f.authErr != nil {
		return nil, f.authErr
	}
	return &gitlab.User{ID: 1, Username: "backup-bot"}, nil
}

func (f *fakeAPI) FetchGroup(_ context.Context, groupID string) (*gitlab.Group, error) {
	f.fetchedGroups = append(f.fetchedGroups, groupID)
	group, ok := f.groups[groupID]
	if !ok {
		return nil, &gitlab.APIError{StatusCode: 404, Status: "404 Not Found", URL: "/groups/" + groupID}
	}
	return group, nil
}

func (f *fakeAPI) ListGroupProjects(_ context.Context, groupID int, _ bool) ([]gitlab.Project, error) {
	if err := f.listErr[groupID]; err != nil {
		return nil, err
	}
	return f.projects[groupID], nil
}

func (f *fakeAPI) FetchProject(_ context.Context, projectID int) (*gitlab.Project, error) {
	project, ok := f.fullProjects[projectID]
	if !ok {
		return nil, &gitlab.APIError{StatusCode: 404, Status: "404 Not Found", URL: fmt.Sprintf("/projects/%d", projectID)}
	}
	return project, nil
}

type recordingTransferer struct {
	targets []Target
	errs    map[string]error
}

func (r *recordingTransferer) Transfer(_ context.Context, target Target) error {
	r.targets = append(r.targets, target)
	return r.errs[target.Project.Name]
}

type recordingReporter struct {
	mu           sync.Mutex
	groupsFailed []string
	results      []Result
}

func (r *recordingReporter) GroupStarted(*gitlab.Group, string, int) {}
func (r *recordingReporter) GroupFailed(groupID string, _ error) {
	r.groupsFailed = append(r.groupsFailed, groupID)
}
func (r *recordingReporter) ProjectStarted(string, string) {}
func (r *recordingReporter) ProjectFinished(result Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
}
func (r *recordingReporter) PublishFailed(string, error) {}

type countingRecorder struct {
	outcomes map[Outcome]int
}

func (c *countingRecorder) RecordTransfer(_ Mode, outcome Outcome, _ time.Duration) {
	c.outcomes[outcome]++
}

type fakePublisher struct {
	keys []string
	err  error
}

func (f *fakePublisher) Publish(_ context.Context, key string, _ string) error {
	f.keys = append(f.keys, key)
	return f.err
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		groups: map[string]*gitlab.Group{
			"248": {ID: 248, Name: "Platform"},
			"240": {ID: 240, Name: "Data"},
		},
		projects: map[int][]gitlab.Project{
			248: {{ID: 1, Name: "api"}, {ID: 2, Name: "web"}, {ID: 3, Name: "docs"}},
			240: {{ID: 4, Name: "etl"}},
		},
		listErr: map[int]error{},
		fullProjects: map[int]*gitlab.Project{
			1: {ID: 1, Name: "api"},
			2: {ID: 2, Name: "web"},
			3: {ID: 3, Name: "docs"},
			4: {ID: 4, Name: "etl"},
		},
	}
}

func projectNames(targets []Target) []string {
	names := make([]string, 0, len(targets))
	for _, target := range targets {
		names = append(names, target.Group.Name+"/"+target.Project.Name)
	}
	return names
}

func TestRunCreatesGroupDirectoriesAndTransfersEveryProject(t *testing.T) {
	root := t.TempDir()
	backupRun := NewBackupRun(root, ModeSnapshot, time.Date(2026, 5, 1, 10, 0, 0, 0, time.Local))
	api := newFakeAPI()
	transferer := &recordingTransferer{}
	reporter := &recordingReporter{}
	recorder := &countingRecorder{outcomes: map[Outcome]int{}}

	orchestrator := NewOrchestrator(api, transferer, backupRun, Options{Reporter: reporter, Recorder: recorder})
	summary, err := orchestrator.Run(context.Background(), []string{"248", "240"})
	require.NoError(t, err)

	for _, name := range []string{"Platform", "Data"} {
		info, err := os.Stat(backupRun.GroupDir(name))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}

	if diff := cmp.Diff([]string{"Platform/api", "Platform/web", "Platform/docs", "Data/etl"}, projectNames(transferer.targets)); diff != "" {
		t.Errorf("transfer order mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, backupRun.ProjectPath("Platform", "api"), transferer.targets[0].Path)
	assert.Equal(t, Summary{Groups: 2, Projects: 4, Transferred: 4}, summary)
	assert.Equal(t, 4, recorder.outcomes[OutcomeTransferred])
}

func TestRunUsesFullProjectRecord(t *testing.T) {
	api := newFakeAPI()
	api.projects[248] = []gitlab.Project{{ID: 1, Name: "api"}}
	api.fullProjects[1] = &gitlab.Project{ID: 1, Name: "api", EmptyRepo: true, HTTPURLToRepo: "https://gitlab.example.com/platform/api.git"}
	transferer := &recordingTransferer{}

	orchestrator := NewOrchestrator(api, transferer, NewBackupRun(t.TempDir(), ModeMirror, time.Now()), Options{})
	_, err := orchestrator.Run(context.Background(), []string{"248"})
	require.NoError(t, err)

	require.Len(t, transferer.targets, 1)
	assert.True(t, transferer.targets[0].Project.EmptyRepo)
	assert.Equal(t, "https://gitlab.example.com/platform/api.git", transferer.targets[0].Project.HTTPURLToRepo)
}

func TestRunContinuesAfterProjectFailure(t *testing.T) {
	api := newFakeAPI()
	delete(api.fullProjects, 3)
	transferer := &recordingTransferer{errs: map[string]error{
		"api": errors.New("connection reset"),
		"web": Skip("empty repository"),
	}}
	reporter := &recordingReporter{}

	orchestrator := NewOrchestrator(api, transferer, NewBackupRun(t.TempDir(), ModeSnapshot, time.Now()), Options{Reporter: reporter})
	summary, err := orchestrator.Run(context.Background(), []string{"248", "240"})
	require.NoError(t, err)

	assert.Equal(t, Summary{Groups: 2, Projects: 4, Transferred: 1, Skipped: 1, Failed: 2}, summary)
	assert.Equal(t, []string{"Platform/api", "Platform/web", "Data/etl"}, projectNames(transferer.targets))

	outcomes := make([]Outcome, 0, len(reporter.results))
	for _, result := range reporter.results {
		outcomes = append(outcomes, result.Outcome)
	}
	assert.Equal(t, []Outcome{OutcomeFailed, OutcomeSkipped, OutcomeFailed, OutcomeTransferred}, outcomes)
	assert.Equal(t, "docs", reporter.results[2].Project)
}

func TestRunContinuesAfterGroupFailure(t *testing.T) {
	root := t.TempDir()
	backupRun := NewBackupRun(root, ModeSnapshot, time.Now())
	api := newFakeAPI()
	api.groups["124"] = &gitlab.Group{ID: 124, Name: "Locked"}
	api.listErr[124] = &gitlab.APIError{StatusCode: 403, Status: "403 Forbidden"}
	transferer := &recordingTransferer{}
	reporter := &recordingReporter{}

	orchestrator := NewOrchestrator(api, transferer, backupRun, Options{Reporter: reporter})
	summary, err := orchestrator.Run(context.Background(), []string{"999", "124", "240"})
	require.NoError(t, err)

	assert.Equal(t, []string{"999", "124"}, reporter.groupsFailed)
	assert.Equal(t, []string{"Data/etl"}, projectNames(transferer.targets))
	assert.Equal(t, Summary{Groups: 3, GroupsFailed: 2, Projects: 1, Transferred: 1}, summary)
}

func TestRunAbortsOnAuthenticationFailure(t *testing.T) {
	api := newFakeAPI()
	api.authErr = &gitlab.APIError{StatusCode: 401, Status: "401 Unauthorized"}
	transferer := &recordingTransferer{}

	orchestrator := NewOrchestrator(api, transferer, NewBackupRun(t.TempDir(), ModeSnapshot, time.Now()), Options{})
	_, err := orchestrator.Run(context.Background(), []string{"248"})

	require.Error(t, err)
	assert.True(t, gitlab.IsUnauthorized(err))
	assert.Empty(t, api.fetchedGroups)
	assert.Empty(t, transferer.targets)
}

func TestRunStopsWhenContextIsCancelled(t *testing.T) {
	api := newFakeAPI()
	ctx, cancel := context.WithCancel(context.Background())
	transferer := TransfererFunc(func(context.Context, Target) error {
		cancel()
		return nil
	})

	orchestrator := NewOrchestrator(api, transferer, NewBackupRun(t.TempDir(), ModeSnapshot, time.Now()), Options{})
	summary, err := orchestrator.Run(ctx, []string{"248", "240"})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"248"}, api.fetchedGroups)
	assert.LessOrEqual(t, summary.Projects, 3)
}

func TestRunPublishesTransferredArtifacts(t *testing.T) {
	api := newFakeAPI()
	backupRun := NewBackupRun(t.TempDir(), ModeSnapshot, time.Date(2026, 5, 1, 10, 0, 0, 0, time.Local))
	transferer := &recordingTransferer{errs: map[string]error{"web": Skip("empty repository")}}
	publisher := &fakePublisher{}

	orchestrator := NewOrchestrator(api, transferer, backupRun, Options{Publisher: publisher})
	summary, err := orchestrator.Run(context.Background(), []string{"248"})
	require.NoError(t, err)

	assert.Equal(t, []string{"2026-05-01/Snapshot/Platform/api.zip", "2026-05-01/Snapshot/Platform/docs.zip"}, publisher.keys)
	assert.Zero(t, summary.PublishFailed)

	publisher.err = errors.New("bucket unreachable")
	summary, err = orchestrator.Run(context.Background(), []string{"240"})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.PublishFailed)
	assert.Equal(t, 1, summary.Transferred)
}

func TestRunKeepsSameNamedSubgroupProjectsApart(t *testing.T) {
	api := newFakeAPI()
	api.groups["248"].FullPath = "platform"
	api.projects[248] = []gitlab.Project{{ID: 5, Name: "api"}, {ID: 6, Name: "api"}, {ID: 7, Name: "web"}}
	api.fullProjects[5] = &gitlab.Project{ID: 5, Name: "api", PathWithNamespace: "platform/billing/api"}
	api.fullProjects[6] = &gitlab.Project{ID: 6, Name: "api", PathWithNamespace: "platform/auth/api"}
	api.fullProjects[7] = &gitlab.Project{ID: 7, Name: "web", PathWithNamespace: "platform/web"}
	backupRun := NewBackupRun(t.TempDir(), ModeMirror, time.Date(2026, 5, 1, 10, 0, 0, 0, time.Local))
	transferer := &recordingTransferer{}
	publisher := &fakePublisher{}

	orchestrator := NewOrchestrator(api, transferer, backupRun, Options{IncludeSubgroups: true, Publisher: publisher})
	summary, err := orchestrator.Run(context.Background(), []string{"248"})
	require.NoError(t, err)

	paths := make([]string, 0, len(transferer.targets))
	for _, target := range transferer.targets {
		paths = append(paths, target.Path)
	}
	want := []string{
		backupRun.ProjectPath("Platform", "billing_api"),
		backupRun.ProjectPath("Platform", "auth_api"),
		backupRun.ProjectPath("Platform", "web"),
	}
	if diff := cmp.Diff(want, paths); diff != "" {
		t.Errorf("destination mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{
		"2026-05-01/Mirror/Platform/billing_api.git",
		"2026-05-01/Mirror/Platform/auth_api.git",
		"2026-05-01/Mirror/Platform/web.git",
	}, publisher.keys)
	assert.Equal(t, Summary{Groups: 1, Projects: 3, Transferred: 3}, summary)
}

func TestRunFailsProjectWhoseDestinationIsTaken(t *testing.T) {
	api := newFakeAPI()
	api.projects[248] = []gitlab.Project{{ID: 5, Name: "api"}, {ID: 6, Name: "api"}}
	api.fullProjects[5] = &gitlab.Project{ID: 5, Name: "api"}
	api.fullProjects[6] = &gitlab.Project{ID: 6, Name: "api"}
	transferer := &recordingTransferer{}
	reporter := &recordingReporter{}

	orchestrator := NewOrchestrator(api, transferer, NewBackupRun(t.TempDir(), ModeSnapshot, time.Now()), Options{Reporter: reporter})
	summary, err := orchestrator.Run(context.Background(), []string{"248"})
	require.NoError(t, err)

	assert.Len(t, transferer.targets, 1)
	assert.Equal(t, Summary{Groups: 1, Projects: 2, Transferred: 1, Failed: 1}, summary)
	require.Len(t, reporter.results, 2)
	assert.ErrorContains(t, reporter.results[1].Err, "already used by Platform/api")
}

func TestRunAsSkipsAuthentication(t *testing.T) {
	api := newFakeAPI()
	api.authErr = errors.New("must not be called")
	transferer := &recordingTransferer{}

	orchestrator := NewOrchestrator(api, transferer, NewBackupRun(t.TempDir(), ModeSnapshot, time.Now()), Options{})
	summary, err := orchestrator.RunAs(context.Background(), &gitlab.User{Username: "backup-bot"}, []string{"240"})
	require.NoError(t, err)
	assert.Equal(t, Summary{Groups: 1, Projects: 1, Transferred: 1}, summary)
}

func TestProjectFileStem(t *testing.T) {
	group := &gitlab.Group{Name: "Platform", FullPath: "platform"}
	tests := map[string]string{
		"platform/api":            "api",
		"platform/billing/api":    "billing_api",
		"platform/billing/v2/api": "billing_v2_api",
		"elsewhere/shared/api":    "api",
		"":                        "api",
	}
	for pathWithNamespace, want := range tests {
		got := projectFileStem(group, &gitlab.Project{Name: "api", PathWithNamespace: pathWithNamespace})
		assert.Equal(t, want, got, pathWithNamespace)
	}
	assert.Equal(t, "api", projectFileStem(&gitlab.Group{Name: "Platform"}, &gitlab.Project{Name: "api", PathWithNamespace: "platform/billing/api"}))
}
