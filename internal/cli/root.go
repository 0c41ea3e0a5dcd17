// Package cli wires sarchive's cobra commands: a persistent set of
// scheduler-spool flags on the root command, and one subcommand per
// archive sink (file, kafka, elasticsearch) carrying the flags specific
// to that destination.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hpc-sre/sarchive/internal/config"
	"github.com/hpc-sre/sarchive/internal/logging"
	"github.com/hpc-sre/sarchive/internal/scheduler"
)

var rootCmd = &cobra.Command{
	Use:   "sarchive",
	Short: "Archive batch-scheduler job spool entries before the scheduler reclaims them",
	Long: "sarchive watches a batch job scheduler's spool directory and, for every job\n" +
		"submitted, archives its script and environment to a durable sink before the\n" +
		"scheduler deletes the spool entry.",
}

var (
	flagConfig        string
	flagScheduler     string
	flagSpool         string
	flagCluster       string
	flagFilterRegex   string
	flagTorqueSubdirs bool
	flagCleanup       bool
	flagDebug         bool
	flagLogfile       string
	flagQueueSize     int
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "path to an optional YAML config overlay")
	pf.StringVar(&flagScheduler, "scheduler", "slurm", "scheduler spool shape to watch: slurm or torque")
	pf.StringVar(&flagSpool, "spool", "", "spool base directory (required)")
	pf.StringVar(&flagCluster, "cluster", "", "cluster label attached to every archived job")
	pf.StringVar(&flagFilterRegex, "filter-regex", "", "regex of environment variable names to drop (slurm only)")
	pf.BoolVar(&flagTorqueSubdirs, "torque-subdirs", false, "watch spool/0..spool/9 instead of spool itself (torque only)")
	pf.BoolVar(&flagCleanup, "cleanup", false, "drain and archive queued jobs on shutdown instead of abandoning them")
	pf.BoolVar(&flagDebug, "debug", false, "emit debug-level logs")
	pf.StringVar(&flagLogfile, "logfile", "", "write logs to this file instead of stderr; reopened on SIGHUP")
	pf.IntVar(&flagQueueSize, "queue-size", 1024, "capacity of the queue between the spool watcher and the archiver")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// overlay loads the optional config file, applying its top-level fields
// only to root flags the operator did not pass explicitly — flags always
// win. The file's sink section is not applied to the subcommand flags.
func overlay(cmd *cobra.Command) (*config.File, error) {
	f, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, nil
	}

	changed := cmd.Flags().Changed
	if !changed("scheduler") && f.Scheduler != "" {
		flagScheduler = f.Scheduler
	}
	if !changed("spool") && f.Spool != "" {
		flagSpool = f.Spool
	}
	if !changed("cluster") && f.Cluster != "" {
		flagCluster = f.Cluster
	}
	if !changed("filter-regex") && f.FilterRegex != "" {
		flagFilterRegex = f.FilterRegex
	}
	if !changed("torque-subdirs") && f.TorqueSubdirs {
		flagTorqueSubdirs = f.TorqueSubdirs
	}
	if !changed("cleanup") && f.Cleanup {
		flagCleanup = f.Cleanup
	}
	if !changed("debug") && f.Debug {
		flagDebug = f.Debug
	}
	if !changed("logfile") && f.Logfile != "" {
		flagLogfile = f.Logfile
	}
	return f, nil
}

// buildLogger constructs the shared logger from the resolved flags. The
// returned ReopenableFile is non-nil only when --logfile was given; the
// caller must arrange for it to be reopened on SIGHUP and closed on exit.
func buildLogger() (*slog.Logger, *logging.ReopenableFile, error) {
	level := "info"
	if flagDebug {
		level = "debug"
	}
	return logging.New(logging.Options{Level: level, OutputPath: flagLogfile})
}

// watchReopen reopens rf every time the process receives SIGHUP, the
// conventional signal for "the log file you have open has been rotated
// out from under you, open the new one at the same path." It runs until
// ctx is done. A nil rf (no --logfile) makes this a no-op.
func watchReopen(ctx context.Context, logger *slog.Logger, rf *logging.ReopenableFile) {
	if rf == nil {
		return
	}
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)
	go func() {
		defer signal.Stop(sigCh)
		for {
			select {
			case <-ctx.Done():
				return
			case <-sigCh:
				if err := rf.Reopen(); err != nil {
					logger.Error("failed to reopen log file", "err", err)
					continue
				}
				logger.Info("log file reopened")
			}
		}
	}()
}

// buildAdapter constructs the scheduler Adapter named by flagScheduler.
func buildAdapter() (scheduler.Adapter, error) {
	if flagSpool == "" {
		return nil, fmt.Errorf("--spool is required")
	}
	return scheduler.New(scheduler.Kind(flagScheduler), scheduler.Options{
		Base:         flagSpool,
		Cluster:      flagCluster,
		FilterRegex:  flagFilterRegex,
		TorqueSubdir: flagTorqueSubdirs,
	})
}
