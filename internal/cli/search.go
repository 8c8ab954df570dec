package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/JonMunkholm/dartsearch/internal/catalog"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newSearchCommand() *cobra.Command {
	var (
		filters []string
		output  string
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "search <file> [keywords...]",
		Short: "Search a catalog file",
		Long: `Search filters the catalog, then keeps rows whose description or item
number contains every keyword (case-insensitive).

Filters use field=value; repeat a field to match any of several values.
Use "(blank)" to match an empty sales status.`,
		Example: `  catalog search dart.xlsx hex bolt
  catalog search dart.xlsx --filter manufacturer=Acme --filter sales_status=Active
  catalog search dart.csv pipe --output json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := queryFrom(args[1:], filters)
			if err != nil {
				return err
			}
			svc, err := openService(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			res, err := svc.Search(cmd.Context(), q)
			if err != nil {
				return err
			}
			if res.NoQuery || res.NoMatch {
				_, _ = fmt.Fprintln(cmd.ErrOrStderr(), res.Message)
				return nil
			}

			records := res.Records
			if limit > 0 && len(records) > limit {
				records = records[:limit]
			}
			return renderRecords(cmd.OutOrStdout(), records, output, res.Message)
		},
	}

	cmd.Flags().StringArrayVarP(&filters, "filter", "f", nil, "Filter as field=value (repeatable)")
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format (table|json|csv)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Show at most this many rows (0 for all)")
	_ = cmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"table", "json", "csv"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("filter", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		keys := filterKeys()
		for i, k := range keys {
			keys[i] = k + "="
		}
		return keys, cobra.ShellCompDirectiveNoSpace
	})

	return cmd
}

func renderRecords(w io.Writer, records []catalog.Record, format, summary string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	case "csv":
		return catalog.ExportCSV(w, records)
	case "table", "":
		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.SetStyle(table.StyleLight)

		header := make(table.Row, 0, len(catalog.Fields))
		for _, label := range catalog.Labels() {
			header = append(header, label)
		}
		t.AppendHeader(header)

		for _, r := range records {
			row := make(table.Row, 0, len(catalog.Fields))
			for _, v := range r.Values() {
				row = append(row, v)
			}
			t.AppendRow(row)
		}
		t.Render()
		_, _ = fmt.Fprintln(w, summary)
		return nil
	}
	return fmt.Errorf("unknown output format %q (want table, json or csv)", format)
}
