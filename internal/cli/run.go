package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/mmynk/meetcost/internal/mail"
	"github.com/mmynk/meetcost/internal/service"
)

// NewRunCommand creates the run command.
func NewRunCommand(deps *Deps) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process unseen meeting invites",
		Long: `Process unseen meeting invites from the mailbox.

Each invite is costed, stored, and summarized to its organizer. Invites that
were already recorded (same meeting ID) are skipped.

Examples:
  meetcost run                 # one batch
  meetcost run --interval 5m   # poll every five minutes until interrupted`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			i := deps.app.injector
			if _, err := do.Invoke[mail.Source](i); err != nil {
				return err
			}
			if _, err := do.Invoke[mail.Sink](i); err != nil {
				return err
			}
			svc, err := do.Invoke[*service.MeetingService](i)
			if err != nil {
				return err
			}

			if interval > 0 {
				return svc.Run(cmd.Context(), interval)
			}

			result, err := svc.ProcessBatch(cmd.Context())
			if err != nil {
				return err
			}
			return render(deps.Out, deps.output, result, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "fetched %d, recorded %d, duplicates %d, rejected %d, failed %d\n",
					result.Fetched, result.Recorded, result.Duplicates, result.Rejected, result.Failed)
				return err
			})
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 0, "Poll repeatedly at this interval (0 runs one batch)")
	return cmd
}
