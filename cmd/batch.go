package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grovetools/lombridge/cli"
	"github.com/grovetools/lombridge/errors"
	"github.com/grovetools/lombridge/logging"
	"github.com/grovetools/lombridge/pkg/batch"
)

// outcomeJSON is the --json shape of one batch outcome.
type outcomeJSON struct {
	Index        int         `json:"index"`
	Command      string      `json:"command"`
	OK           bool        `json:"ok"`
	Result       interface{} `json:"result,omitempty"`
	Error        string      `json:"error,omitempty"`
	Verification string      `json:"verification,omitempty"`
}

// NewBatchCmd runs a file of actions against the host.
func NewBatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "batch <file>",
		Short: "Run a sequence of actions from a YAML, JSON or TOML file",
		Long: `Run a sequence of actions in order. A failing action is reported and
the batch continues with the next one.

Examples:
  lombridge batch session.yml
  lombridge batch actions.json --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actions, err := batch.LoadFile(args[0])
			if err != nil {
				return err
			}
			mgr, cfg, err := newManager(cmd)
			if err != nil {
				return err
			}
			defer mgr.Close()

			report := batch.New(mgr, cfg.Batch).Run(cmd.Context(), actions)

			out := cmd.OutOrStdout()
			if cli.GetOptions(cmd).JSONOutput {
				rows := make([]outcomeJSON, 0, len(report.Outcomes))
				for _, o := range report.Outcomes {
					row := outcomeJSON{
						Index:        o.Index,
						Command:      o.Command,
						OK:           o.OK(),
						Result:       o.Result,
						Verification: o.Verification,
					}
					if o.Err != nil {
						row.Error = errors.Describe(o.Err)
					}
					rows = append(rows, row)
				}
				data, err := json.MarshalIndent(rows, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
			} else {
				pretty := logging.NewPrettyLogger().WithWriter(out)
				for _, o := range report.Outcomes {
					pretty.Outcome(o.Line(), o.OK())
				}
				pretty.Divider()
				pretty.InfoPretty(report.Tally())
			}

			if failed := report.Failed(); failed > 0 {
				return errors.CommandFailed("batch", fmt.Sprintf("%d of %d actions failed", failed, len(report.Outcomes)))
			}
			return nil
		},
	}
}
