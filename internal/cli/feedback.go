package cli

import (
	"fmt"
	"io"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/mmynk/meetcost/internal/mail"
	"github.com/mmynk/meetcost/internal/service"
)

// NewFeedbackCommand creates the feedback command group.
func NewFeedbackCommand(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feedback",
		Short: "Request and report anonymous meeting feedback",
	}

	cmd.AddCommand(
		newFeedbackSendCommand(deps),
		newFeedbackReportCommand(deps),
	)
	return cmd
}

func newFeedbackSendCommand(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "send",
		Short: "Ask participants of ended meetings for feedback",
		Long: `Ask participants of ended meetings for feedback.

Every participant of a meeting that has ended receives a personal link. A
meeting is only marked as handled once all of its requests were delivered.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			i := deps.app.injector
			if _, err := do.Invoke[mail.Sink](i); err != nil {
				return err
			}
			fb, err := do.Invoke[*service.FeedbackService](i)
			if err != nil {
				return err
			}

			result, err := fb.SendRequests(cmd.Context())
			if err != nil {
				return err
			}
			return render(deps.Out, deps.output, result, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "meetings %d, sent %d, failed %d\n", result.Meetings, result.Sent, result.Failed)
				return err
			})
		},
	}
}

func newFeedbackReportCommand(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "report <meeting-id>",
		Short: "Show the aggregated feedback of a meeting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			i := deps.app.injector
			db, err := do.Invoke[Database](i)
			if err != nil {
				return err
			}
			if _, err := db.GetMeeting(cmd.Context(), args[0]); err != nil {
				return err
			}
			fb, err := do.Invoke[*service.FeedbackService](i)
			if err != nil {
				return err
			}
			summary, err := fb.ReportByID(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			return render(deps.Out, deps.output, summary, func(w io.Writer) error {
				fmt.Fprintf(w, "Responses: %d\nUseful: %d\n", summary.Responses, summary.UsefulCount)
				if len(summary.Improvements) > 0 {
					fmt.Fprintln(w, "\nImprovements:")
					for _, s := range summary.Improvements {
						fmt.Fprintf(w, "- %s\n", s)
					}
				}
				return nil
			})
		},
	}
}
