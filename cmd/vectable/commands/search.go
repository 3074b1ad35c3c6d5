package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/spf13/cobra"

	"github.com/hupe1980/vectable"
	"github.com/hupe1980/vectable/distance"
)

func newSearchCmd(g *globals) *cobra.Command {
	var (
		vector   string
		text     string
		column   string
		filter   string
		columns  []string
		limit    int
		distType string
	)
	cmd := &cobra.Command{
		Use:   "search <table>",
		Short: "Vector, full-text or filtered search",
		Long: `Search a table.

  vectable search items --vector 0.1,0.9 --limit 5
  vectable search items --text "red apple" --column text
  vectable search items --where "region = 'east'" --select id,text`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := vectable.Query{
				FullText: text,
				Column:   column,
				Filter:   filter,
				Columns:  columns,
				Limit:    limit,
			}
			if vector != "" {
				v, err := parseVector(vector)
				if err != nil {
					return err
				}
				q.Vector = v
			}
			if distType != "" {
				dt, err := distance.Parse(distType)
				if err != nil {
					return err
				}
				q.DistanceType = &dt
			}

			return g.withTable(cmd, args[0], func(tbl vectable.Table) error {
				res, err := tbl.Search(cmd.Context(), q)
				if err != nil {
					return err
				}
				headers, cells, records, err := collect(res)
				if err != nil {
					return err
				}
				return g.emit(records, func() grid {
					return grid{headers: headers, rows: cells}
				})
			})
		},
	}
	cmd.Flags().StringVar(&vector, "vector", "", "query vector as comma-separated floats")
	cmd.Flags().StringVar(&text, "text", "", "full-text query")
	cmd.Flags().StringVar(&column, "column", "", "vector or text column to search")
	cmd.Flags().StringVar(&filter, "where", "", "SQL predicate applied before ranking")
	cmd.Flags().StringSliceVar(&columns, "select", nil, "columns to return")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of rows (default 10)")
	cmd.Flags().StringVar(&distType, "distance", "", "distance type: l2, cosine, dot or hamming")
	cmd.MarkFlagsMutuallyExclusive("vector", "text")
	return cmd
}

func parseVector(s string) ([]float32, error) {
	parts := strings.Split(s, ",")
	v := make([]float32, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("invalid vector component %q: %w", p, err)
		}
		v[i] = float32(f)
	}
	return v, nil
}

// collect drains res into display cells and marshalable rows.
func collect(res array.RecordReader) ([]string, [][]string, []map[string]any, error) {
	defer res.Release()

	fields := res.Schema().Fields()
	headers := make([]string, len(fields))
	for i, f := range fields {
		headers[i] = f.Name
	}

	var (
		cells   [][]string
		records = []map[string]any{}
	)
	for res.Next() {
		rec := res.Record()
		for r := 0; r < int(rec.NumRows()); r++ {
			row := make([]string, len(fields))
			obj := make(map[string]any, len(fields))
			for c := range fields {
				col := rec.Column(c)
				row[c] = col.ValueStr(r)
				obj[headers[c]] = col.GetOneForMarshal(r)
			}
			cells = append(cells, row)
			records = append(records, obj)
		}
	}
	if err := res.Err(); err != nil {
		return nil, nil, nil, err
	}
	return headers, cells, records, nil
}
