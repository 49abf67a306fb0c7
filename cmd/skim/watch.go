package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ai-reading-be/internal/config"
	"ai-reading-be/internal/pkg/logger"
	"ai-reading-be/pkg/events"
	pktNats "ai-reading-be/pkg/nats"

	"github.com/spf13/cobra"
)

func watchCmd() *cobra.Command {
	var url string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream reading session events from NATS",
		RunE: func(cmd *cobra.Command, args []string) error {
			if url == "" {
				url = config.Load().App.NatsURL
			}
			sub, err := pktNats.NewSubscriber(url, logger.NewConsoleLogger(false))
			if err != nil {
				return err
			}
			defer sub.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			err = sub.Subscribe(ctx, "*", "", func(ctx context.Context, event events.Event) error {
				payload, err := json.Marshal(event.Payload())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s %s %s\n", event.Timestamp().Format(time.RFC3339), event.EventType(), payload)
				return nil
			})
			if err != nil {
				return err
			}

			<-ctx.Done()
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "nats", "", "NATS URL (default from NATS_URL)")
	return cmd
}
