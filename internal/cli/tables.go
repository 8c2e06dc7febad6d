package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/mmynk/meetcost/internal/models"
	"github.com/mmynk/meetcost/internal/storage"
	"github.com/mmynk/meetcost/internal/storage/csvtable"
)

// tableEntry is one row of a lookup table in command output.
type tableEntry struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// tableSpec describes a lookup table for the generic table commands.
type tableSpec[V any] struct {
	name     string
	example  string
	keyName  string
	valName  string
	key      func(string) string
	pick     func(Tables) storage.KeyValueStore[V]
	parse    func(string) (V, error)
	format   func(V) string
	openFile func(path string) (storage.KeyValueStore[V], error)
}

var roleSpec = tableSpec[string]{
	name:    "roles",
	example: "  meetcost roles set mak developer",
	keyName: "identifier",
	valName: "role",
	key:     func(s string) string { return strings.ToLower(strings.TrimSpace(s)) },
	pick:    func(t Tables) storage.KeyValueStore[string] { return t.Roles },
	parse: func(s string) (string, error) {
		s = strings.TrimSpace(s)
		if s == "" {
			return "", fmt.Errorf("role must not be empty")
		}
		return s, nil
	},
	format: func(s string) string { return s },
	openFile: func(path string) (storage.KeyValueStore[string], error) {
		t, err := csvtable.OpenRoles(path)
		if err != nil {
			return nil, err
		}
		return t, nil
	},
}

var wageSpec = tableSpec[float64]{
	name:    "wages",
	example: "  meetcost wages set developer 95.50",
	keyName: "role",
	valName: "hourly rate",
	key:     strings.TrimSpace,
	pick:    func(t Tables) storage.KeyValueStore[float64] { return t.Wages },
	parse: func(s string) (float64, error) {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid hourly rate %q: %w", s, err)
		}
		return v, models.ValidateHourlyRate(v)
	},
	format: func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) },
	openFile: func(path string) (storage.KeyValueStore[float64], error) {
		t, err := csvtable.OpenWages(path)
		if err != nil {
			return nil, err
		}
		return t, nil
	},
}

// NewRolesCommand creates the roles command group.
func NewRolesCommand(deps *Deps) *cobra.Command {
	return newTableCommand(deps, roleSpec, "Manage the participant-to-role table")
}

// NewWagesCommand creates the wages command group.
func NewWagesCommand(deps *Deps) *cobra.Command {
	return newTableCommand(deps, wageSpec, "Manage the role-to-hourly-wage table")
}

func newTableCommand[V any](deps *Deps, spec tableSpec[V], short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   spec.name,
		Short: short,
	}

	table := func() (storage.KeyValueStore[V], error) {
		t, err := do.Invoke[Tables](deps.app.injector)
		if err != nil {
			return nil, err
		}
		return spec.pick(t), nil
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all " + spec.name,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := table()
			if err != nil {
				return err
			}
			entries, err := listEntries(cmd.Context(), t, spec.format)
			if err != nil {
				return err
			}
			return render(deps.Out, deps.output, entries, func(w io.Writer) error {
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintf(tw, "%s\t%s\n", strings.ToUpper(spec.keyName), strings.ToUpper(spec.valName))
				for _, e := range entries {
					fmt.Fprintf(tw, "%s\t%s\n", e.Key, e.Value)
				}
				return tw.Flush()
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     fmt.Sprintf("set <%s> <%s>", spec.keyName, spec.valName),
		Short:   "Add or replace one entry",
		Long:    "Add or replace one entry. Arguments starting with - must follow --, otherwise they are read as flags.",
		Example: spec.example,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := spec.key(args[0])
			if key == "" {
				return fmt.Errorf("%s must not be empty", spec.keyName)
			}
			value, err := spec.parse(args[1])
			if err != nil {
				return err
			}
			t, err := table()
			if err != nil {
				return err
			}
			if err := t.Upsert(cmd.Context(), key, value); err != nil {
				return err
			}
			fmt.Fprintf(deps.Out, "%s: %s = %s\n", spec.name, key, spec.format(value))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "import <file.csv>",
		Short: "Upsert every entry of a two-column CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(args[0]); err != nil {
				return err
			}
			src, err := spec.openFile(args[0])
			if err != nil {
				return err
			}
			entries, err := src.All(cmd.Context())
			if err != nil {
				return err
			}
			t, err := table()
			if err != nil {
				return err
			}
			for key, value := range entries {
				if err := t.Upsert(cmd.Context(), key, value); err != nil {
					return err
				}
			}
			fmt.Fprintf(deps.Out, "imported %d %s\n", len(entries), spec.name)
			return nil
		},
	})

	return cmd
}

func listEntries[V any](ctx context.Context, t storage.KeyValueStore[V], format func(V) string) ([]tableEntry, error) {
	all, err := t.All(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]tableEntry, 0, len(all))
	for k, v := range all {
		entries = append(entries, tableEntry{Key: k, Value: format(v)})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}
