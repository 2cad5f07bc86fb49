package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var typesAll bool

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "List registered content types",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := clientFromFlags()
		if err != nil {
			return err
		}
		items, err := client.ListContentTypes(cmd.Context())
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "UID\tNAME\tKIND")
		for _, it := range items {
			if !typesAll && !it.UserDefined {
				continue
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", it.UID, it.Name, it.Kind)
		}
		return tw.Flush()
	},
}

var showLocale string

var typesShowCmd = &cobra.Command{
	Use:   "show <uid>",
	Short: "Show the record breakdown of one content type",
	Long: `Show total, published and draft record counts of one content type.

Example:
  contentmetrics types show api::article.article --locale fr`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := clientFromFlags()
		if err != nil {
			return err
		}
		return showContentType(cmd.Context(), client, cmd.OutOrStdout(), args[0], showLocale)
	},
}

func init() {
	typesCmd.Flags().BoolVar(&typesAll, "all", false, "Include admin and plugin content types")
	typesShowCmd.Flags().StringVar(&showLocale, "locale", "", "Only count records of this locale")
	typesCmd.AddCommand(typesShowCmd)
}

func showContentType(ctx context.Context, client *APIClient, w io.Writer, uid, locale string) error {
	detail, err := client.GetContentType(ctx, uid, locale)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "UID\t%s\n", detail.UID)
	fmt.Fprintf(tw, "Name\t%s\n", detail.Name)
	if locale != "" {
		fmt.Fprintf(tw, "Locale\t%s\n", locale)
	}
	fmt.Fprintf(tw, "Total\t%d\n", detail.Counts.Total)
	fmt.Fprintf(tw, "Published\t%d\n", detail.Counts.Published)
	fmt.Fprintf(tw, "Draft\t%d\n", detail.Counts.Draft)
	return tw.Flush()
}
