package backupCommand

import (
	"context"
	"fmt"
	"glbackup/internal/appConfig"
	"glbackup/internal/archive"
	"glbackup/internal/backup"
	"glbackup/internal/backupCommand/terminalView"
	"glbackup/internal/color"
	"glbackup/internal/gitlab"
	"glbackup/internal/gitrepo"
	"glbackup/internal/log"
	"glbackup/internal/metrics"
	"glbackup/internal/offsite"
	"glbackup/internal/view"
	"io"
	"os"
	"time"
)

// ExecuteBackupCommand runs one backup of all configured groups. The returned
// error is set when the run could not start, authentication failed or ctx was
// cancelled; failed groups and projects only show up in the summary.
func ExecuteBackupCommand(ctx context.Context, config *appConfig.AppConfig, stdin io.Reader, stdout *os.File) (backup.Summary, error) {
	startTime := time.Now()

	fd := int(stdout.Fd())
	isTTY := view.IsTerminal(fd)
	if !isTTY {
		color.Disable()
	}

	labApi := gitlab.NewAPIClient(config.Token, config.GitLab)
	user, err := labApi.Authenticate(ctx)
	if err != nil {
		logger.Log.Errorf("Authentication against %s failed: %v", config.GitLab.ServerURL(), err)
		return backup.Summary{}, err
	}
	logger.Log.Infof("Authenticated as %s", user.Username)
	_, _ = fmt.Fprintf(stdout, "Connected as %s\n", color.FgCyan("%s", user.Username))

	mode, err := resolveMode(config.Mode, stdin, stdout)
	if err != nil {
		return backup.Summary{}, err
	}
	backupRun := backup.NewBackupRun(config.BackupRoot, mode, startTime)

	transferer, err := newTransferer(mode, config, labApi)
	if err != nil {
		return backup.Summary{}, err
	}
	publisher, err := newPublisher(ctx, mode, config)
	if err != nil {
		return backup.Summary{}, err
	}
	recorder := metrics.NewRecorder()

	viewModel := terminalView.NewBackupViewModel(backupRun.Dir(), logger.GetLogFilePath())
	orchestrator := backup.NewOrchestrator(labApi, transferer, backupRun, backup.Options{
		IncludeSubgroups:   config.GitLab.IncludeSubgroups,
		RateLimitPerSecond: config.GitLab.RateLimitPerSecond,
		Reporter:           terminalView.NewConsoleReporter(viewModel, stdout, isTTY),
		Recorder:           recorder,
		Publisher:          publisher,
	})

	logger.Log.Infof("Starting %s backup of %d groups from %s", mode, len(config.GitLab.Groups), config.GitLab.ServerURL())
	_, _ = fmt.Fprintf(stdout, "\nBacking up %s groups from %s into %s\n",
		color.FgMagenta("%d", len(config.GitLab.Groups)),
		color.FgCyan("%s", config.GitLab.ServerURL()),
		color.FgCyan("%s", backupRun.Dir()))

	timeElapsedView := view.NewTimeElapsedView(startTime, stdout, time.Since)
	renderCtx, stopRenderLoop := context.WithCancel(ctx)
	renderDone := make(chan struct{})
	if isTTY {
		go func() {
			defer close(renderDone)
			view.StartTTYRenderLoop(renderCtx, terminalView.NewBackupCommandView(viewModel, stdout, timeElapsedView), stdout, view.TerminalWidth(fd))
		}()
	} else {
		close(renderDone)
	}

	// only a cancelled ctx ends the run early, the summary is still written
	summary, err := orchestrator.RunAs(ctx, user, config.GitLab.Groups)
	stopRenderLoop()
	<-renderDone

	recorder.RecordRunFinished(time.Now())
	if config.MetricsFile != "" {
		if metricsErr := recorder.WriteTextfile(config.MetricsFile); metricsErr != nil {
			logger.Log.Errorf("Failed to write metrics to %s: %v", config.MetricsFile, metricsErr)
			_, _ = fmt.Fprintf(stdout, "%s %v\n", color.FgRed("Failed to write metrics:"), metricsErr)
		}
	}

	_, _ = fmt.Fprintln(stdout)
	terminalView.NewSummaryView(&summary, stdout).Render(0)
	if !isTTY {
		timeElapsedView.Render(0)
	}
	logger.Log.Infof("Backup finished: %+v", summary)
	return summary, err
}

func newTransferer(mode backup.Mode, config *appConfig.AppConfig, labApi *gitlab.APIClient) (backup.Transferer, error) {
	if mode == backup.ModeSnapshot {
		return archive.NewSnapshotTransfer(labApi), nil
	}
	engine, err := gitrepo.ParseEngine(config.MirrorEngine)
	if err != nil {
		return nil, err
	}
	return gitrepo.NewMirrorTransfer(config.Token, engine), nil
}

// newPublisher returns nil unless snapshots are configured to be copied to S3.
func newPublisher(ctx context.Context, mode backup.Mode, config *appConfig.AppConfig) (backup.Publisher, error) {
	if !config.S3.Enabled() {
		return nil, nil
	}
	if mode != backup.ModeSnapshot {
		logger.Log.Infof("S3 bucket %s configured, mirrors are kept local only", config.S3.Bucket)
		return nil, nil
	}
	storage, err := offsite.NewS3Storage(ctx, config.S3)
	if err != nil {
		return nil, fmt.Errorf("failed to set up S3 upload: %w", err)
	}
	return storage, nil
}
