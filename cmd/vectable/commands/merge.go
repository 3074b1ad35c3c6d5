package commands

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/hupe1980/vectable"
)

func newMergeCmd(g *globals) *cobra.Command {
	var (
		file           string
		on             []string
		updateAll      bool
		insertAll      bool
		deleteBySource bool
		deleteFilter   string
	)
	cmd := &cobra.Command{
		Use:   "merge <table>",
		Short: "Upsert rows into a table",
		Long: `Merge rows from a file into a table, joined on the --on columns.

  vectable merge items -f rows.jsonl --on id --update-all --insert-all

Without any of --update-all, --insert-all and --delete-not-in-source the
merge changes nothing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if deleteFilter != "" && !deleteBySource {
				return errors.New("--delete-filter requires --delete-not-in-source")
			}
			ctx := cmd.Context()
			return g.withTable(cmd, args[0], func(tbl vectable.Table) error {
				b, err := tbl.MergeInsert(on...)
				if err != nil {
					return err
				}
				if updateAll {
					b.WhenMatchedUpdateAll()
				}
				if insertAll {
					b.WhenNotMatchedInsertAll()
				}
				if deleteBySource {
					b.WhenNotMatchedBySourceDelete(deleteFilter)
				}
				if err := b.Err(); err != nil {
					return err
				}

				schema, err := tbl.Schema(ctx)
				if err != nil {
					return err
				}
				rows, err := openRows(file, schema)
				if err != nil {
					return err
				}
				if err := b.Execute(ctx, rows); err != nil {
					return err
				}
				version, err := tbl.Version(ctx)
				if err != nil {
					return err
				}
				g.success("merged into %s (version %d)", args[0], version)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "source rows (.arrow, .ipc, .feather or JSON lines)")
	cmd.Flags().StringSliceVar(&on, "on", nil, "key columns to join on")
	cmd.Flags().BoolVar(&updateAll, "update-all", false, "update matched rows with the source values")
	cmd.Flags().BoolVar(&insertAll, "insert-all", false, "insert source rows without a match")
	cmd.Flags().BoolVar(&deleteBySource, "delete-not-in-source", false, "delete target rows without a source match")
	cmd.Flags().StringVar(&deleteFilter, "delete-filter", "", "only delete unmatched target rows matching this predicate")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("on")
	return cmd
}
