package commands

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	gojson "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/hupe1980/vectable"
	"github.com/hupe1980/vectable/index"
	"github.com/hupe1980/vectable/table"
)

func newIndexCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Create, list, inspect and resolve indices",
		Long: `Create, list, inspect and resolve indices.

Index descriptors are YAML or JSON files naming the index kind and its
parameters; absent parameters take their defaults:

  type: FTS
  language: German
  stem: true
  remove_stop_words: true

Kinds: BTree, Bitmap, LabelList, FTS, IvfPq, HnswPq, HnswSq.`,
	}
	cmd.AddCommand(
		newIndexCreateCmd(g),
		newIndexListCmd(g),
		newIndexStatsCmd(g),
		newIndexResolveCmd(g),
	)
	return cmd
}

func newIndexCreateCmd(g *globals) *cobra.Command {
	var (
		file    string
		name    string
		replace bool
	)
	cmd := &cobra.Command{
		Use:   "create <table> <column>",
		Short: "Build an index on a column",
		Long: `Build an index on a column. Without -f the index kind is chosen from
the column type: IvfPq for vectors, BTree otherwise.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var desc index.Descriptor
			if file != "" {
				raw, err := loadDescriptor(file)
				if err != nil {
					return err
				}
				desc = raw
			}
			opts := []table.IndexOption{table.WithReplace(replace)}
			if name != "" {
				opts = append(opts, table.WithIndexName(name))
			}
			return g.withTable(cmd, args[0], func(tbl vectable.Table) error {
				if err := tbl.CreateIndex(cmd.Context(), args[1], desc, opts...); err != nil {
					return err
				}
				g.success("indexed %s.%s", args[0], args[1])
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "index descriptor (YAML or JSON)")
	cmd.Flags().StringVar(&name, "name", "", "index name (default <column>_idx)")
	cmd.Flags().BoolVar(&replace, "replace", true, "replace an index of the same name")
	return cmd
}

func newIndexListCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "list <table>",
		Short: "List the indices of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withTable(cmd, args[0], func(tbl vectable.Table) error {
				indices, err := tbl.ListIndices(cmd.Context())
				if err != nil {
					return err
				}
				if indices == nil {
					indices = []index.IndexConfig{}
				}
				return g.emit(indices, func() grid {
					gr := grid{headers: []string{"NAME", "TYPE", "COLUMNS"}}
					for _, ic := range indices {
						gr.rows = append(gr.rows, []string{ic.Name, ic.IndexType, strings.Join(ic.Columns, ", ")})
					}
					return gr
				})
			})
		},
	}
}

func newIndexStatsCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "stats <table> <index>",
		Short: "Show index coverage",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withTable(cmd, args[0], func(tbl vectable.Table) error {
				st, err := tbl.IndexStats(cmd.Context(), args[1])
				if err != nil {
					return err
				}
				return g.emit(st, func() grid {
					return grid{
						headers: []string{"TYPE", "DISTANCE", "INDEXED", "UNINDEXED"},
						rows: [][]string{{
							st.IndexType,
							st.DistanceType,
							strconv.FormatInt(st.NumIndexedRows, 10),
							strconv.FormatInt(st.NumUnindexedRows, 10),
						}},
					}
				})
			})
		},
	}
}

// resolvedIndex is the printable form of a resolved descriptor.
type resolvedIndex struct {
	Type   string            `json:"type" yaml:"type"`
	Params gojson.RawMessage `json:"params" yaml:"-"`
	Fields map[string]any    `json:"-" yaml:"params"`
}

func newIndexResolveCmd(g *globals) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Validate a descriptor and print it with defaults applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := loadDescriptor(file)
			if err != nil {
				return err
			}
			idx, err := index.Resolve(raw)
			if err != nil {
				return err
			}
			params, err := index.Marshal(idx)
			if err != nil {
				return err
			}
			out := resolvedIndex{Type: idx.Type().WireName(), Params: params}
			if err := gojson.Unmarshal(params, &out.Fields); err != nil {
				return fmt.Errorf("failed to decode parameters: %w", err)
			}
			return g.emit(out, func() grid {
				gr := grid{headers: []string{"PARAMETER", "VALUE"}}
				gr.rows = append(gr.rows, []string{"type", out.Type})
				for _, k := range slices.Sorted(maps.Keys(out.Fields)) {
					gr.rows = append(gr.rows, []string{k, fmt.Sprint(out.Fields[k])})
				}
				return gr
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "index descriptor (YAML or JSON)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
