package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hpc-sre/sarchive/internal/daemon"
	"github.com/hpc-sre/sarchive/internal/sink"
)

var (
	flagElasticHost  string
	flagElasticPort  int
	flagElasticIndex string
)

func init() {
	elasticsearchCmd.Flags().StringVar(&flagElasticHost, "host", "localhost", "elasticsearch host")
	elasticsearchCmd.Flags().IntVar(&flagElasticPort, "port", 9200, "elasticsearch port")
	elasticsearchCmd.Flags().StringVar(&flagElasticIndex, "index", "", "elasticsearch index to store archived jobs in (required)")
	rootCmd.AddCommand(elasticsearchCmd)
}

var elasticsearchCmd = &cobra.Command{
	Use:   "elasticsearch",
	Short: "Archive jobs as documents in an elasticsearch index",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := overlay(cmd); err != nil {
			return err
		}
		if flagElasticIndex == "" {
			return fmt.Errorf("--index is required")
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

		s, err := sink.NewElasticSink(flagElasticHost, flagElasticPort, flagElasticIndex)
		if err != nil {
			return fmt.Errorf("sarchive: elasticsearch sink: %w", err)
		}
		defer s.Close()

		ctx := context.Background()
		watchReopen(ctx, logger, logfile)

		sup := daemon.NewSupervisor(adapter, s, daemon.ProcessorConfig{Cleanup: flagCleanup}, logger).WithQueueSize(flagQueueSize)
		return sup.Run(ctx)
	},
}
