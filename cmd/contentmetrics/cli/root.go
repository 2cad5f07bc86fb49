package cli

import (
	"github.com/spf13/cobra"
)

const defaultPluginID = "metrics-widget"

var (
	flagServer   string
	flagToken    string
	flagPluginID string
)

var rootCmd = &cobra.Command{
	Use:   "contentmetrics",
	Short: "Record counts per content type",
	Long: `contentmetrics shows how many records each user-defined content type
holds, as reported by the content metrics server.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagServer, "server", "", "Server URL (defaults to the one stored by login)")
	rootCmd.PersistentFlags().StringVar(&flagToken, "token", "", "Bearer token (defaults to the one stored by login)")
	rootCmd.PersistentFlags().StringVar(&flagPluginID, "plugin", defaultPluginID, "Plugin id the count endpoint is mounted under")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(metricsCmd)
	rootCmd.AddCommand(typesCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(versionCmd)
}

// clientFromFlags builds a client honouring --server, --token and --plugin.
func clientFromFlags() (*APIClient, error) {
	c, err := NewClient(flagServer, flagToken)
	if err != nil {
		return nil, err
	}
	if flagPluginID != "" {
		c.PluginID = flagPluginID
	}
	return c, nil
}
