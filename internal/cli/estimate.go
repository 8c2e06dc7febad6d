package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/mmynk/meetcost/internal/calculator"
	"github.com/mmynk/meetcost/internal/mail"
	"github.com/mmynk/meetcost/internal/service"
)

// NewEstimateCommand creates the estimate command.
func NewEstimateCommand(deps *Deps) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "estimate --file invite.eml",
		Short: "Cost a saved invite without storing it",
		Long: `Cost a saved invite (RFC 5322 .eml file) without storing it or sending mail.

Participants missing from the role table are still registered as "undefined",
so they show up in "meetcost roles list".

Examples:
  meetcost estimate --file invite.eml
  meetcost estimate --file - -o json < invite.eml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return fmt.Errorf("opening invite: %w", err)
				}
				defer f.Close()
				in = f
			}

			raw, err := mail.ParseMessage(in)
			if err != nil {
				return err
			}

			svc, err := do.Invoke[*service.MeetingService](deps.app.injector)
			if err != nil {
				return err
			}
			est, err := svc.Estimate(cmd.Context(), raw)
			if err != nil {
				return err
			}

			return render(deps.Out, deps.output, est, func(w io.Writer) error {
				return printEstimate(w, est)
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Invite file to cost, - for stdin (required)")
	cmd.MarkFlagRequired("file")
	return cmd
}

func printEstimate(w io.Writer, est *service.Estimate) error {
	d := est.Details
	meetingID := d.ExternalID
	if meetingID == "" {
		meetingID = "-"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Subject:      %s\n", d.Subject)
	fmt.Fprintf(&b, "Organizer:    %s\n", d.Organizer)
	fmt.Fprintf(&b, "Start:        %s\n", d.Start)
	fmt.Fprintf(&b, "Duration:     %s\n", calculator.DurationDescription(est.Cost.Minutes, est.Cost.DefaultDuration))
	fmt.Fprintf(&b, "Meeting ID:   %s\n", meetingID)
	fmt.Fprintf(&b, "Participants: %s\n\n", strings.Join(d.Participants, ", "))
	b.WriteString(est.Cost.Explanation + "\n")
	for _, warning := range est.Cost.Warnings {
		fmt.Fprintf(&b, "warning: %s\n", warning)
	}

	_, err := io.WriteString(w, b.String())
	return err
}
