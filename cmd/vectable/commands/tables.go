package commands

import (
	"fmt"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/spf13/cobra"

	"github.com/hupe1980/vectable"
	"github.com/hupe1980/vectable/table"
)

func newTablesCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := g.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			names, err := db.TableNames(cmd.Context())
			if err != nil {
				return err
			}
			if names == nil {
				names = []string{}
			}
			return g.emit(names, func() grid {
				gr := grid{headers: []string{"TABLE"}}
				for _, n := range names {
					gr.rows = append(gr.rows, []string{n})
				}
				return gr
			})
		},
	}
}

func newImportCmd(g *globals) *cobra.Command {
	var (
		file       string
		schemaFile string
		mode       string
	)
	cmd := &cobra.Command{
		Use:   "import <table>",
		Short: "Create or extend a table from a file",
		Long: `Create or extend a table from an Arrow IPC file or a JSON lines file.

JSON lines need a schema. With --mode append or overwrite the schema of
the existing table is used; with --mode create it is read from --schema:

  fields:
    - name: id
      type: {type: int64}
    - name: vector
      type: {type: fixed_size_list, length: 2, fields: [{name: item, type: {type: float}, nullable: true}]}`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			m, err := table.ParseWriteMode(mode)
			if err != nil {
				return err
			}

			db, err := g.connect(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			var schema *arrow.Schema
			if schemaFile != "" {
				if schema, err = loadSchema(schemaFile); err != nil {
					return err
				}
			}

			if m == vectable.ModeCreate {
				rows, err := openRows(file, schema)
				if err != nil {
					return err
				}
				if _, err := db.CreateTable(ctx, args[0], rows, m); err != nil {
					return err
				}
				g.success("created table %s", args[0])
				return nil
			}

			tbl, err := db.OpenTable(ctx, args[0])
			if err != nil {
				return err
			}
			if schema == nil {
				if schema, err = tbl.Schema(ctx); err != nil {
					return err
				}
			}
			rows, err := openRows(file, schema)
			if err != nil {
				return err
			}
			if err := tbl.Add(ctx, rows, m); err != nil {
				return err
			}
			version, err := tbl.Version(ctx)
			if err != nil {
				return err
			}
			g.success("wrote %s (version %d)", args[0], version)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "input file (.arrow, .ipc, .feather or JSON lines)")
	cmd.Flags().StringVar(&schemaFile, "schema", "", "schema of a JSON lines file (YAML or JSON)")
	cmd.Flags().StringVar(&mode, "mode", "create", "write mode: create, append or overwrite")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newCountCmd(g *globals) *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:   "count <table>",
		Short: "Count rows, optionally filtered",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withTable(cmd, args[0], func(tbl vectable.Table) error {
				n, err := tbl.CountRows(cmd.Context(), filter)
				if err != nil {
					return err
				}
				return g.emit(map[string]int64{"count": n}, func() grid {
					return grid{headers: []string{"COUNT"}, rows: [][]string{{strconv.FormatInt(n, 10)}}}
				})
			})
		},
	}
	cmd.Flags().StringVar(&filter, "where", "", "SQL predicate, e.g. \"region = 'east'\"")
	return cmd
}

func newDeleteCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <table> <predicate>",
		Short: "Delete rows matching a predicate",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withTable(cmd, args[0], func(tbl vectable.Table) error {
				if err := tbl.Delete(cmd.Context(), args[1]); err != nil {
					return err
				}
				version, err := tbl.Version(cmd.Context())
				if err != nil {
					return err
				}
				g.success("deleted rows where %s (version %d)", args[1], version)
				return nil
			})
		},
	}
}

func newDropCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "drop <table>",
		Short: "Drop a table and all its data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := g.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.DropTable(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to drop %s: %w", args[0], err)
			}
			g.success("dropped table %s", args[0])
			return nil
		},
	}
}
