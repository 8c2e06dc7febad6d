package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/mmynk/meetcost/internal/calculator"
	"github.com/mmynk/meetcost/internal/models"
)

// NewMeetingsCommand creates the meetings command group.
func NewMeetingsCommand(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "meetings",
		Aliases: []string{"meeting"},
		Short:   "Inspect recorded meetings",
	}

	cmd.AddCommand(
		newMeetingsListCommand(deps),
		newMeetingsShowCommand(deps),
		newMeetingsSpendCommand(deps),
	)
	return cmd
}

func newMeetingsListCommand(deps *Deps) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded meetings, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := do.Invoke[Database](deps.app.injector)
			if err != nil {
				return err
			}
			meetings, err := db.ListMeetings(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if meetings == nil {
				meetings = []*models.MeetingRecord{}
			}

			return render(deps.Out, deps.output, meetings, func(w io.Writer) error {
				if len(meetings) == 0 {
					_, err := fmt.Fprintln(w, "No meetings recorded.")
					return err
				}
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tSTART\tSUBJECT\tPARTICIPANTS\tCOST")
				for _, m := range meetings {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%.2f\n", m.ID, m.StartTime, m.Subject, len(m.Participants), m.TotalCost)
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of meetings (0 for all)")
	return cmd
}

func newMeetingsShowCommand(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "show <meeting-id>",
		Short: "Show one meeting with its cost breakdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := do.Invoke[Database](deps.app.injector)
			if err != nil {
				return err
			}
			m, err := db.GetMeeting(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			return render(deps.Out, deps.output, m, func(w io.Writer) error {
				return printMeeting(w, m)
			})
		},
	}
}

func printMeeting(w io.Writer, m *models.MeetingRecord) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%s\n", m.ID)
	if m.ExternalID != "" {
		fmt.Fprintf(tw, "Meeting ID:\t%s\n", m.ExternalID)
	}
	fmt.Fprintf(tw, "Subject:\t%s\n", m.Subject)
	fmt.Fprintf(tw, "Organizer:\t%s\n", m.Organizer)
	fmt.Fprintf(tw, "Start:\t%s\n", m.StartTime)
	if m.EndTime != "" {
		fmt.Fprintf(tw, "End:\t%s\n", m.EndTime)
	}
	fmt.Fprintf(tw, "Feedback requested:\t%t\n", m.FeedbackSent)
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\n%s\n", m.Explanation)
	for _, warning := range m.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
	return nil
}

func newMeetingsSpendCommand(deps *Deps) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "spend",
		Short: "Summarize meeting spend by role and participant",
		Long: `Summarize meeting spend by role and participant.

Uses the role and rate stored with each meeting, so later table changes do
not rewrite history.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := do.Invoke[Database](deps.app.injector)
			if err != nil {
				return err
			}
			meetings, err := db.ListMeetings(cmd.Context(), limit)
			if err != nil {
				return err
			}
			summary := calculator.SummarizeSpend(meetings)

			return render(deps.Out, deps.output, summary, func(w io.Writer) error {
				return printSpend(w, summary)
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Only the newest N meetings (0 for all)")
	return cmd
}

func printSpend(w io.Writer, s calculator.SpendSummary) error {
	fmt.Fprintf(w, "%d meetings, total %.2f\n\n", s.Meetings, s.Total)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ROLE\tPEOPLE\tHOURS\tTOTAL")
	for _, r := range s.ByRole {
		fmt.Fprintf(tw, "%s\t%d\t%.2f\t%.2f\n", r.Role, r.Participants, r.Hours, r.Total)
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "PARTICIPANT\tROLE\tMEETINGS\tHOURS\tTOTAL")
	for _, p := range s.ByParticipant {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.2f\t%.2f\n", p.Identifier, p.Role, p.Meetings, p.Hours, p.Total)
	}
	return tw.Flush()
}
