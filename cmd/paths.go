package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grovetools/lombridge/pkg/paths"
)

// PathsOutput lists the XDG locations lombridge uses.
type PathsOutput struct {
	ConfigDir    string `json:"config_dir"`
	GlobalConfig string `json:"global_config"`
	StateDir     string `json:"state_dir"`
	LogDir       string `json:"log_dir"`
	PidFile      string `json:"pid_file"`
}

func NewPathsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "paths",
		Short: "Print the XDG-compliant paths used by lombridge",
		Long: `Print the XDG-compliant paths used by lombridge as JSON.

- config_dir: Global configuration directory
- global_config: Global lombridge.yml
- state_dir: Runtime state
- log_dir: Per-component log files
- pid_file: Record of the running host`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := PathsOutput{
				ConfigDir:    paths.ConfigDir(),
				GlobalConfig: paths.GlobalConfigFile(),
				StateDir:     paths.StateDir(),
				LogDir:       paths.LogDir(),
				PidFile:      paths.PidFilePath(),
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
