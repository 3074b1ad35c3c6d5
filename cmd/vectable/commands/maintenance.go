package commands

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/hupe1980/vectable"
	"github.com/hupe1980/vectable/table"
)

func newCompactCmd(g *globals) *cobra.Command {
	opts := table.DefaultCompactionOptions()
	cmd := &cobra.Command{
		Use:   "compact <table>",
		Short: "Merge small fragments and drop deleted rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withTable(cmd, args[0], func(tbl vectable.Table) error {
				st, err := tbl.Compact(cmd.Context(), opts)
				if err != nil {
					return err
				}
				return g.emit(st, func() grid {
					return grid{
						headers: []string{"FRAGMENTS REMOVED", "FRAGMENTS ADDED", "FILES REMOVED", "FILES ADDED"},
						rows: [][]string{{
							strconv.Itoa(st.FragmentsRemoved),
							strconv.Itoa(st.FragmentsAdded),
							strconv.Itoa(st.FilesRemoved),
							strconv.Itoa(st.FilesAdded),
						}},
					}
				})
			})
		},
	}
	f := cmd.Flags()
	f.Int64Var(&opts.TargetRowsPerFragment, "target-rows", opts.TargetRowsPerFragment, "rows per fragment to aim for")
	f.Int64Var(&opts.MaxRowsPerGroup, "max-rows-per-group", opts.MaxRowsPerGroup, "rows per record batch")
	f.BoolVar(&opts.MaterializeDeletions, "materialize-deletions", opts.MaterializeDeletions, "rewrite fragments with many deleted rows")
	f.Float64Var(&opts.MaterializeDeletionsThreshold, "deletion-threshold", opts.MaterializeDeletionsThreshold, "deleted share that triggers a rewrite")
	f.IntVar(&opts.NumThreads, "threads", 0, "concurrent rewrites (default number of CPUs)")
	return cmd
}

func newCleanupCmd(g *globals) *cobra.Command {
	var (
		olderThan        = table.DefaultCleanupAge
		deleteUnverified bool
	)
	cmd := &cobra.Command{
		Use:   "cleanup <table>",
		Short: "Remove old versions and the files only they reference",
		Long: `Remove versions older than --older-than and the files only they
reference. The latest version is always kept. Unreferenced files younger
than seven days may belong to a running write and are kept unless
--delete-unverified is set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withTable(cmd, args[0], func(tbl vectable.Table) error {
				st, err := tbl.CleanupOlderThan(cmd.Context(), olderThan, deleteUnverified)
				if err != nil {
					return err
				}
				return g.emit(st, func() grid {
					return grid{
						headers: []string{"OLD VERSIONS", "BYTES REMOVED"},
						rows:    [][]string{{strconv.Itoa(st.OldVersions), strconv.FormatInt(st.BytesRemoved, 10)}},
					}
				})
			})
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", olderThan, "minimum age of removed versions")
	cmd.Flags().BoolVar(&deleteUnverified, "delete-unverified", false, "also delete recent unreferenced files")
	return cmd
}
