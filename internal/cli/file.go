package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hpc-sre/sarchive/internal/daemon"
	"github.com/hpc-sre/sarchive/internal/sink"
)

var (
	flagFileArchivePath string
	flagFilePeriod      string
)

func init() {
	fileCmd.Flags().StringVar(&flagFileArchivePath, "archive-path", "", "directory to archive job files into (required)")
	fileCmd.Flags().StringVar(&flagFilePeriod, "period", string(sink.PeriodNone), "time bucketing: none, daily, monthly, yearly")
	rootCmd.AddCommand(fileCmd)
}

var fileCmd = &cobra.Command{
	Use:   "file",
	Short: "Archive jobs as plain files on the local filesystem",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := overlay(cmd); err != nil {
			return err
		}
		if flagFileArchivePath == "" {
			return fmt.Errorf("--archive-path is required")
		}

		adapter, err := buildAdapter()
		if err != nil {
			return err
		}
		logger, logfile, err := buildLogger()
		if err != nil {
			return err
		}
		if logfile != nil {
			defer logfile.Close()
		}

		s, err := sink.NewFileSink(flagFileArchivePath, sink.Period(flagFilePeriod))
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := context.Background()
		watchReopen(ctx, logger, logfile)

		sup := daemon.NewSupervisor(adapter, s, daemon.ProcessorConfig{Cleanup: flagCleanup}, logger).WithQueueSize(flagQueueSize)
		return sup.Run(ctx)
	},
}
