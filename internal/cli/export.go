package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/JonMunkholm/dartsearch/internal/catalog"
	"github.com/JonMunkholm/dartsearch/internal/core"
	"github.com/spf13/cobra"
)

func newExportCommand() *cobra.Command {
	var (
		filters []string
		out     string
	)

	cmd := &cobra.Command{
		Use:   "export <file> [keywords...]",
		Short: "Write search results to an .xlsx or .csv file",
		Long: `Export runs the same query as search and writes the matches to the
file named by --out. The format follows its extension. Nothing is written
when no rows match.`,
		Example: `  catalog export dart.xlsx hex bolt -o bolts.xlsx
  catalog export dart.xlsx -f manufacturer=Acme -o acme.csv`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				return errors.New("--out is required")
			}
			format, err := catalog.FormatOf(out)
			if err != nil {
				return fmt.Errorf("--out %s: %w", out, err)
			}
			q, err := queryFrom(args[1:], filters)
			if err != nil {
				return err
			}
			svc, err := openService(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			var buf bytes.Buffer
			n, err := svc.Export(cmd.Context(), q, format, &buf)
			if err != nil {
				return err
			}
			if n == 0 {
				_, _ = fmt.Fprintln(cmd.ErrOrStderr(), core.MessageNoMatch)
				return nil
			}
			if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Exported %d row(s) to %s\n", n, out)
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&filters, "filter", "f", nil, "Filter as field=value (repeatable)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (.xlsx or .csv)")
	return cmd
}
