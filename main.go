package main

import (
	"context"
	"fmt"
	"github.com/spf13/cobra"
	"glbackup/internal/appConfig"
	"glbackup/internal/backupCommand"
	"glbackup/internal/color"
	. "glbackup/internal/log"
	typex "glbackup/type"
	"os"
	"os/signal"
	"syscall"
)

type flags struct {
	configFile string
	mode       string
	groups     string
	output     string
	engine     string
	verbose    typex.NullableBool
}

func newRootCommand() *cobra.Command {
	f := &flags{}
	cmd := &cobra.Command{
		Use:   "glbackup",
		Short: "Back up GitLab groups as zip snapshots or git mirrors",
		Long: `glbackup copies every project of the configured GitLab groups into
<output>/<date>/<Snapshot|Mirror>/<group>/<project>.<zip|git>.

Settings are read from glbackup.yaml, .env, the environment and the flags
below, later sources winning. Without a mode you are asked for one.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), f)
		},
	}

	cmd.Flags().StringVar(&f.configFile, "config", "", "config file (default ./"+appConfig.ConfigFileName+", then ~/"+appConfig.ConfigFileName+")")
	cmd.Flags().StringVarP(&f.mode, "mode", "m", "", "backup mode: snapshot (1) or mirror (2)")
	cmd.Flags().StringVarP(&f.groups, "groups", "g", "", "semicolon separated GitLab group IDs or paths")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "backup root directory")
	cmd.Flags().StringVar(&f.engine, "engine", "", "mirror engine: git or go-git")
	cmd.Flags().VarP(&f.verbose, "verbose", "v", "Print verbose output")
	cmd.Flags().Lookup("verbose").NoOptDefVal = "true"
	return cmd
}

func run(ctx context.Context, f *flags) error {
	logFile := InitLogger(f.verbose.Val(false))
	defer logFile.Close()

	config, err := appConfig.Load(appConfig.Overrides{
		ConfigFile:   f.configFile,
		Mode:         f.mode,
		Groups:       f.groups,
		BackupRoot:   f.output,
		MirrorEngine: f.engine,
	})
	if err != nil {
		Log.Errorf("Failed to load configuration: %v", err)
		return err
	}

	_, err = backupCommand.ExecuteBackupCommand(ctx, config, os.Stdin, os.Stdout)
	return err
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.FgRed("Error:"), err)
		stop()
		os.Exit(1)
	}
}
