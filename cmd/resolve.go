package cmd

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/grovetools/pyfinder/cli"
	"github.com/grovetools/pyfinder/internal/session"
	"github.com/grovetools/pyfinder/pkg/hostenv"
	"github.com/grovetools/pyfinder/pkg/models"
	"github.com/grovetools/pyfinder/pkg/rpc"
	"github.com/spf13/cobra"
)

func NewResolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <executable>",
		Short: "Identify a single Python interpreter",
		Long: `Classify one interpreter and print everything known about it.

The interpreter is only run when its version or prefix cannot be read
from disk.

Examples:
  pyfinder resolve ~/.venvs/app/bin/python
  pyfinder resolve /usr/bin/python3 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			exe, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}

			host := hostenv.Capture()
			resolver, err := session.NewResolver(host, cfg, nil)
			if err != nil {
				return err
			}
			record, err := resolver.Resolve(cmd.Context(), session.SearchOptions(cfg, rpc.RefreshParams{}), exe)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if cli.GetOptions(cmd).JSONOutput {
				data, err := json.MarshalIndent(record, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
				return nil
			}
			printRecord(cmd, record)
			return nil
		},
	}
	return cmd
}

func printRecord(cmd *cobra.Command, r models.Record) {
	t := cli.DefaultTheme
	out := cmd.OutOrStdout()
	field := func(label, value string) {
		if value != "" {
			fmt.Fprintf(out, "%s %s\n", t.Muted.Render(fmt.Sprintf("%-11s", label)), value)
		}
	}
	fmt.Fprintf(out, "%s %s\n", t.Title.Render(r.DisplayName), t.Category(r.Category))
	field("executable", r.Executable)
	field("version", r.Version)
	field("prefix", r.Prefix)
	field("arch", string(r.Arch))
	field("project", r.Project)
	if r.Manager != nil {
		field("manager", fmt.Sprintf("%s %s", r.Manager.Tool, r.Manager.Executable))
	}
	if len(r.Symlinks) > 0 {
		field("symlinks", strings.Join(r.Symlinks, ", "))
	}
	field("run", strings.Join(r.RunCommand, " "))
}
