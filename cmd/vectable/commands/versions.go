package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/vectable"
)

func newUpdateCmd(g *globals) *cobra.Command {
	var (
		where string
		sets  []string
	)
	cmd := &cobra.Command{
		Use:   "update <table>",
		Short: "Set columns of the rows matching a predicate",
		Long: `Set columns of the rows matching --where, or of every row. Each --set
takes column=expression, where the expression is SQL evaluated against the
row, e.g. --set "price=price * 2" or --set "vector=[1, 0]".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values := make(map[string]string, len(sets))
			for _, s := range sets {
				col, expr, ok := strings.Cut(s, "=")
				if !ok || strings.TrimSpace(col) == "" {
					return fmt.Errorf("invalid --set %q, want column=expression", s)
				}
				values[strings.TrimSpace(col)] = expr
			}
			return g.withTable(cmd, args[0], func(tbl vectable.Table) error {
				if err := tbl.Update(cmd.Context(), where, values); err != nil {
					return err
				}
				version, err := tbl.Version(cmd.Context())
				if err != nil {
					return err
				}
				g.success("updated %s (version %d)", args[0], version)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&where, "where", "", "SQL predicate selecting the rows")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "column=expression, repeatable")
	_ = cmd.MarkFlagRequired("set")
	return cmd
}

func newVersionsCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "versions <table>",
		Short: "List the versions of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withTable(cmd, args[0], func(tbl vectable.Table) error {
				versions, err := tbl.ListVersions(cmd.Context())
				if err != nil {
					return err
				}
				return g.emit(versions, func() grid {
					gr := grid{headers: []string{"VERSION", "TIMESTAMP", "OPERATION", "ROWS"}}
					for _, v := range versions {
						gr.rows = append(gr.rows, []string{
							strconv.FormatUint(v.Version, 10),
							v.Timestamp.Format(time.RFC3339),
							v.Operation,
							strconv.FormatInt(v.Rows, 10),
						})
					}
					return gr
				})
			})
		},
	}
}

func newRestoreCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <table> <version>",
		Short: "Make an older version the latest one",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid version %q: %w", args[1], err)
			}
			return g.withTable(cmd, args[0], func(tbl vectable.Table) error {
				if err := tbl.Restore(cmd.Context(), version); err != nil {
					return err
				}
				latest, err := tbl.Version(cmd.Context())
				if err != nil {
					return err
				}
				g.success("restored %s to version %d (version %d)", args[0], version, latest)
				return nil
			})
		},
	}
}
