package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/contentmetrics/contentmetrics/internal/widget"
)

var metricsOutput string

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Show record counts per content type",
	Long: `Fetch the record count of every user-defined content type and print
it as a two-column table.

Examples:
  contentmetrics metrics
  contentmetrics metrics --output json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := clientFromFlags()
		if err != nil {
			return err
		}
		return renderMetrics(cmd.Context(), client, cmd.OutOrStdout(), client.PluginID, metricsOutput)
	},
}

func init() {
	metricsCmd.Flags().StringVarP(&metricsOutput, "output", "o", "table", "Output format: table or json")
}

// renderMetrics mounts a display for pluginID's widget, performs its single
// fetch and prints the settled state. The Error state is reported as a
// non-nil error after the generic indicator has been printed.
func renderMetrics(ctx context.Context, f widget.Fetcher, w io.Writer, pluginID, output string) error {
	if output != "table" && output != "json" {
		return fmt.Errorf("unknown output format %q (want table or json)", output)
	}

	d := widget.NewDisplay(f)
	state := d.Load(ctx)

	if output == "json" && state != widget.StateError {
		rows := d.Rows()
		if rows == nil {
			rows = []widget.Row{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	if output == "table" {
		fmt.Fprintln(w, widget.MetricsWidget(pluginID).DefaultTitle)
	}
	if err := d.Render(w); err != nil {
		return err
	}
	if state == widget.StateError {
		return errors.New(d.Err())
	}
	return nil
}
