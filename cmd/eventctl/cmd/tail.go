package cmd

import (
	"encoding/json"
	"fmt"
	"ms-events/internal/kafka"
	"ms-events/internal/models"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print event lifecycle messages from Kafka as JSON lines",
	RunE:  runTail,
}

var (
	tailTopic   string
	tailEventID int64
)

func init() {
	rootCmd.AddCommand(tailCmd)

	tailCmd.Flags().StringVar(&tailTopic, "topic", "", "Topic to follow (default: KAFKA_TOPIC_EVENTS)")
	tailCmd.Flags().Int64Var(&tailEventID, "event-id", 0, "Only print changes of this event")
}

func runTail(cmd *cobra.Command, args []string) error {
	cfg, log := loadConfig(cmd)

	topic := cfg.Kafka.EventsTopic
	if tailTopic != "" {
		topic = tailTopic
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, topic, "eventctl-tail-"+uuid.NewString(), log)
	defer consumer.Close()

	out := cmd.OutOrStdout()
	return consumer.Start(ctx, func(change models.EventChange) {
		if !matchesEvent(change, tailEventID) {
			return
		}
		line, err := json.Marshal(change)
		if err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Cannot print change of event %d: %v", change.EventID, err))
			return
		}
		fmt.Fprintln(out, string(line))
	})
}

func matchesEvent(change models.EventChange, eventID int64) bool {
	return eventID == 0 || change.EventID == eventID
}
