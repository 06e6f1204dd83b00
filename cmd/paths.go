package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/grovetools/pyfinder/config"
	"github.com/grovetools/pyfinder/pkg/paths"
	"github.com/spf13/cobra"
)

// PathsOutput lists the files and directories pyfinder reads and writes.
type PathsOutput struct {
	ConfigDir  string `json:"config_dir"`
	ConfigFile string `json:"config_file,omitempty"`
	StateDir   string `json:"state_dir"`
	LogFile    string `json:"log_file"`
}

func NewPathsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "paths",
		Short: "Print the paths used by pyfinder as JSON",
		Long: `Print the paths used by pyfinder as JSON.

- config_dir: where pyfinder.toml or pyfinder.yml is looked up
- config_file: the configuration file in effect, if any
- state_dir: runtime state
- log_file: default file for the optional log file sink`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := PathsOutput{
				ConfigDir: paths.ConfigDir(),
				StateDir:  paths.StateDir(),
				LogFile:   paths.LogFile("server"),
			}
			if file, err := config.FindConfigFile(); err == nil {
				output.ConfigFile = file
			}

			jsonData, err := json.MarshalIndent(output, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal paths to JSON: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(jsonData))
			return nil
		},
	}
	return cmd
}
