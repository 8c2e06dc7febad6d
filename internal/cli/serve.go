package cli

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/mmynk/meetcost/internal/server"
	"github.com/mmynk/meetcost/internal/service"
)

const shutdownTimeout = 10 * time.Second

// NewServeCommand creates the serve command.
func NewServeCommand(deps *Deps) *cobra.Command {
	var feedbackInterval time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve feedback endpoints, health and metrics over HTTP",
		Long: `Serve the HTTP API until interrupted.

Routes:
  GET  /health
  GET  /metrics
  GET  /v1/feedback/:link            meeting a feedback link belongs to
  POST /v1/feedback/:link            submit {"useful": bool, "improvements": string}
  GET  /v1/meetings/:token/feedback  aggregated feedback for organizers

With --feedback-interval, feedback requests for ended meetings are also sent
periodically.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			i := deps.app.injector
			srv, err := do.Invoke[*server.Server](i)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if feedbackInterval > 0 {
				fb, err := do.Invoke[*service.FeedbackService](i)
				if err != nil {
					return err
				}
				go sendFeedbackLoop(ctx, fb, feedbackInterval)
			}

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start(deps.app.Config.HTTPAddr) }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			slog.Info("Shutting down HTTP server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().DurationVar(&feedbackInterval, "feedback-interval", 0, "Send pending feedback requests at this interval (0 disables)")
	return cmd
}

func sendFeedbackLoop(ctx context.Context, fb *service.FeedbackService, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := fb.SendRequests(ctx); err != nil && ctx.Err() == nil {
			slog.Error("Failed to send feedback requests", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
