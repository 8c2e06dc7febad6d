package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mmynk/meetcost/internal/config"
	"github.com/mmynk/meetcost/pkg/logging"
)

// Deps holds the dependencies of the command tree.
type Deps struct {
	LoadConfig func() (*config.Config, error)
	Out        io.Writer

	// set by the root command before a subcommand runs
	app    *App
	output OutputFormat
}

// DefaultDeps returns the dependencies for production use.
func DefaultDeps() *Deps {
	return &Deps{
		LoadConfig: config.Load,
		Out:        os.Stdout,
	}
}

// NewRootCommand creates the meetcost command tree.
func NewRootCommand(deps *Deps) *cobra.Command {
	if deps == nil {
		deps = DefaultDeps()
	}

	var output string

	root := &cobra.Command{
		Use:   "meetcost",
		Short: "Estimate what meetings cost from their invite emails",
		Long: `meetcost reads meeting invites from a mailbox, prices every participant
by role and hourly wage, stores the result and mails a cost summary to the
organizer. After a meeting ends it can ask participants for anonymous feedback.

Configuration comes from the environment and an optional .env file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			deps.output = OutputFormat(output)
			if !deps.output.IsValid() {
				return fmt.Errorf("unsupported output format %q (use text, json or yaml)", output)
			}

			cfg, err := deps.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}
			logging.Setup(cfg.LogLevel)
			deps.app = NewApp(cfg)
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return deps.closeApp()
		},
	}

	root.PersistentFlags().StringVarP(&output, "output", "o", string(OutputFormatText), "Output format: text, json, yaml")
	root.SetOut(deps.Out)

	root.AddCommand(
		NewRunCommand(deps),
		NewServeCommand(deps),
		NewEstimateCommand(deps),
		NewMeetingsCommand(deps),
		NewRolesCommand(deps),
		NewWagesCommand(deps),
		NewFeedbackCommand(deps),
	)

	return root
}

// Execute runs the command tree with args and releases whatever the
// command opened, also when it failed.
func Execute(ctx context.Context, deps *Deps, args []string) error {
	if deps == nil {
		deps = DefaultDeps()
	}
	root := NewRootCommand(deps)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return errors.Join(err, deps.closeApp())
}

func (d *Deps) closeApp() error {
	if d.app == nil {
		return nil
	}
	err := d.app.Close()
	d.app = nil
	return err
}
