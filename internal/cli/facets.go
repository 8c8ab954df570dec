package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/JonMunkholm/dartsearch/internal/catalog"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newFacetsCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "facets <file>",
		Short: "List the filter values found in a catalog file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openService(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			facets, err := svc.Filters(cmd.Context())
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			switch output {
			case "json":
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(facets)
			case "table", "":
				t := table.NewWriter()
				t.SetOutputMirror(w)
				t.SetStyle(table.StyleLight)
				t.AppendHeader(table.Row{"Filter", "Key", "Count", "Values"})
				for _, f := range catalog.FacetFields {
					vals := facets.Values(f)
					t.AppendRow(table.Row{f.Label(), f.Key(), len(vals), strings.Join(vals, ", ")})
				}
				t.Render()
				return nil
			}
			return fmt.Errorf("unknown output format %q (want table or json)", output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format (table|json)")
	return cmd
}
