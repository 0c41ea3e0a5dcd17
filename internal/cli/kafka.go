package cli

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hpc-sre/sarchive/internal/daemon"
	"github.com/hpc-sre/sarchive/internal/sink"
)

var (
	flagKafkaBrokers        string
	flagKafkaTopic          string
	flagKafkaMessageTimeout int
)

func init() {
	kafkaCmd.Flags().StringVar(&flagKafkaBrokers, "brokers", "localhost:9092", "comma-separated list of kafka broker addresses")
	kafkaCmd.Flags().StringVar(&flagKafkaTopic, "topic", "sarchive", "kafka topic to publish archived jobs to")
	kafkaCmd.Flags().IntVar(&flagKafkaMessageTimeout, "message-timeout", 5000, "per-message write timeout in milliseconds")
	rootCmd.AddCommand(kafkaCmd)
}

var kafkaCmd = &cobra.Command{
	Use:   "kafka",
	Short: "Archive jobs as JSON messages on a kafka topic",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := overlay(cmd); err != nil {
			return err
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

		brokers := strings.Split(flagKafkaBrokers, ",")
		for i := range brokers {
			brokers[i] = strings.TrimSpace(brokers[i])
		}

		s := sink.NewKafkaSink(brokers, flagKafkaTopic, time.Duration(flagKafkaMessageTimeout)*time.Millisecond, logger)
		defer s.Close()

		ctx := context.Background()
		watchReopen(ctx, logger, logfile)

		sup := daemon.NewSupervisor(adapter, s, daemon.ProcessorConfig{Cleanup: flagCleanup}, logger).WithQueueSize(flagQueueSize)
		return sup.Run(ctx)
	},
}
