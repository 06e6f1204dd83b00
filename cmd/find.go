package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/grovetools/pyfinder/cli"
	"github.com/grovetools/pyfinder/internal/session"
	"github.com/grovetools/pyfinder/pkg/discovery"
	"github.com/grovetools/pyfinder/pkg/hostenv"
	"github.com/grovetools/pyfinder/pkg/models"
	"github.com/grovetools/pyfinder/pkg/profiling"
	"github.com/grovetools/pyfinder/pkg/rpc"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

type findOptions struct {
	params   rpc.RefreshParams
	kinds    []string
	managers bool
}

func NewFindCmd() *cobra.Command {
	var opts findOptions
	profiler := profiling.NewCobraProfiler()

	cmd := &cobra.Command{
		Use:   "find",
		Short: "Discover every Python environment on this machine",
		Long: `Run one discovery pass and print what was found.

A table is printed when stdout is a terminal; otherwise, or with --json,
each environment is written as one JSON object per line.

Examples:
  pyfinder find
  pyfinder find --search-path ~/src/app --kind venv --kind conda
  pyfinder find --json --profile`,
		Args:    cobra.NoArgs,
		PreRunE: profiler.PreRun,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := runFind(cmd, opts)
			if perr := profiler.PostRun(cmd, args); err == nil {
				err = perr
			}
			return err
		},
	}

	cmd.Flags().StringSliceVar(&opts.params.SearchPaths, "search-path", nil, "Workspace directory checked for in-project environments")
	cmd.Flags().StringSliceVar(&opts.params.VirtualEnvPaths, "venv-path", nil, "Directory whose children are virtual environments")
	cmd.Flags().StringSliceVar(&opts.params.PythonInterpreterPaths, "interpreter", nil, "Extra interpreter to classify")
	cmd.Flags().StringVar(&opts.params.CondaExecutable, "conda", "", "Conda binary to use")
	cmd.Flags().StringSliceVarP(&opts.kinds, "kind", "k", nil, "Only show environments of this category")
	cmd.Flags().BoolVar(&opts.managers, "managers", false, "List environment managers instead of environments")
	profiler.AddFlags(cmd)
	return cmd
}

// collector gathers one run's findings; emission is serialized by the run
// but the slices are read after it completes from another goroutine.
type collector struct {
	mu       sync.Mutex
	envs     []*models.Environment
	managers map[string]*models.Manager
	host     *hostenv.Snapshot
}

func (c *collector) EmitManager(m *models.Manager) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.managers[m.Key(c.host.NormalizePath)] = m
}

func (c *collector) EmitEnvironment(env *models.Environment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.envs = append(c.envs, env)
	if env.Manager != nil {
		c.managers[env.Manager.Key(c.host.NormalizePath)] = env.Manager
	}
}

func runFind(cmd *cobra.Command, opts findOptions) error {
	cfg, err := cli.LoadConfig(cmd)
	if err != nil {
		return err
	}
	host := hostenv.Capture()
	plan, err := discovery.DefaultPlan(host, session.SearchOptions(cfg, opts.params))
	if err != nil {
		return err
	}

	start := time.Now()
	c := &collector{managers: make(map[string]*models.Manager), host: host}
	run := discovery.New(host, cfg.Search.Concurrency).Run(cmd.Context(), plan, c)
	if err := run.Err(); err != nil {
		return err
	}
	elapsed := time.Since(start)

	records := filterRecords(c.envs, opts.kinds)
	out := cmd.OutOrStdout()
	jsonOut := cli.GetOptions(cmd).JSONOutput || !isTerminal(out)

	if opts.managers {
		return printManagers(out, c.managers, jsonOut)
	}
	if jsonOut {
		return writeJSONLines(out, records)
	}
	printTable(out, records)
	fmt.Fprintln(out, cli.DefaultTheme.Muted.Render(fmt.Sprintf("%d environments in %v", len(records), elapsed.Round(time.Millisecond))))
	return nil
}

func filterRecords(envs []*models.Environment, kinds []string) []models.Record {
	want := make(map[models.Kind]bool, len(kinds))
	for _, k := range kinds {
		want[models.Kind(k)] = true
	}
	records := make([]models.Record, 0, len(envs))
	for _, env := range envs {
		r := models.ToRecord(env)
		if len(want) > 0 && !want[r.Category] {
			continue
		}
		records = append(records, r)
	}
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Category != records[j].Category {
			return records[i].Category < records[j].Category
		}
		return records[i].Name < records[j].Name
	})
	return records
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

func writeJSONLines(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	switch items := v.(type) {
	case []models.Record:
		for _, r := range items {
			if err := enc.Encode(r); err != nil {
				return err
			}
		}
	case []*models.ManagerRecord:
		for _, m := range items {
			if err := enc.Encode(m); err != nil {
				return err
			}
		}
	}
	return nil
}

func printTable(w io.Writer, records []models.Record) {
	t := cli.DefaultTheme
	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(t.Border)).
		Headers("CATEGORY", "NAME", "VERSION", "PREFIX").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return t.Header
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	for _, r := range records {
		tbl.Row(t.Category(r.Category), r.Name, r.Version, r.Prefix)
	}
	fmt.Fprintln(w, tbl.Render())
}

func printManagers(w io.Writer, managers map[string]*models.Manager, jsonOut bool) error {
	records := make([]*models.ManagerRecord, 0, len(managers))
	for _, m := range managers {
		records = append(records, models.ToManagerRecord(m))
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Executable < records[j].Executable })
	if jsonOut {
		return writeJSONLines(w, records)
	}
	for _, m := range records {
		fmt.Fprintf(w, "%-6s %-10s %s\n", m.Tool, m.Version, m.Executable)
	}
	return nil
}
