package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaiso/Tabula/internal/mq"
)

// NewEventsCmd создаёт команду events: поток событий сессий из RabbitMQ.
func NewEventsCmd(envFn func() (*Env, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Stream session events from RabbitMQ (requires RABBITMQ_URL)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := envFn()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			conn, err := env.OpenBroker(ctx)
			if err != nil {
				return err
			}
			defer conn.Close()

			consumer := mq.NewConsumer(conn, env.Logger, mq.ConsumerConfig{
				Handler: func(_ context.Context, event mq.SessionEventPayload) error {
					printEvent(env.Out, event)
					return nil
				},
			})

			err = consumer.Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	return cmd
}

func printEvent(out *Output, event mq.SessionEventPayload) {
	if out.jsonMode {
		out.JSONLine(event)
		return
	}

	line := fmt.Sprintf("%s  %s  %-10s  %s",
		event.At.Format(time.RFC3339), event.SessionID, event.Status, event.StatusMessage)
	if event.Failure != "" {
		line += "  (" + string(event.Failure) + ")"
	}
	fmt.Fprintln(out.w, line)
}
