package engine

import (
	"context"
	"time"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/hupe1980/vectable/errs"
	"github.com/hupe1980/vectable/index"
	"github.com/hupe1980/vectable/internal/manifest"
	"github.com/hupe1980/vectable/lexical"
	"github.com/hupe1980/vectable/table"
)

// CreateIndex resolves desc and records an index on column covering the
// current fragments. Auto picks IvfPq for vector columns and BTree otherwise.
func (t *Table) CreateIndex(ctx context.Context, column string, desc index.Descriptor, opts ...table.IndexOption) (err error) {
	start := time.Now()
	o := table.ApplyIndexOptions(column, opts)
	typeName := "unknown"
	defer func() {
		t.db.opts.metrics.RecordCreateIndex(typeName, time.Since(start), err)
		t.logger.LogCreateIndex(ctx, o.Name, typeName, column, err)
	}()

	if err := t.writable(); err != nil {
		return err
	}
	idx, err := index.Resolve(desc)
	if err != nil {
		return err
	}

	_, err = t.commit(ctx, func(_ context.Context, cur *manifest.Manifest) (*manifest.Manifest, []string, error) {
		if cur == nil {
			return nil, nil, errs.NotFound("table %s was not found", t.name)
		}
		schema, err := decodeSchema(cur.Schema)
		if err != nil {
			return nil, nil, err
		}
		col, err := fieldIndex(schema, column)
		if err != nil {
			return nil, nil, err
		}
		field := schema.Field(col)

		resolved, err := index.ForColumn(idx, field.Type)
		if err != nil {
			return nil, nil, err
		}
		typeName = resolved.Type().WireName()
		if err := checkIndexColumn(resolved, field); err != nil {
			return nil, nil, err
		}

		_, exists := cur.Index(o.Name)
		if exists && !o.Replace {
			return nil, nil, errs.New(errs.ErrAlreadyExists, "index %s already exists", o.Name)
		}

		params, err := index.Marshal(resolved)
		if err != nil {
			return nil, nil, errs.Wrap(errs.ErrRuntime, err, "encode index parameters")
		}
		covered := make([]uint64, len(cur.Fragments))
		for i, f := range cur.Fragments {
			covered[i] = f.ID
		}

		next := cur.Next(opCreateIndex)
		entry := manifest.Index{
			Name:      o.Name,
			Column:    column,
			Type:      resolved.Type().WireName(),
			Params:    params,
			Fragments: covered,
			CreatedAt: t.db.opts.now().UTC(),
		}
		replaced := false
		for i := range next.Indices {
			if next.Indices[i].Name == o.Name {
				next.Indices[i] = entry
				replaced = true
			}
		}
		if !replaced {
			next.Indices = append(next.Indices, entry)
		}
		return next, nil, nil
	})
	if err == nil {
		t.forgetFTS(o.Name)
	}
	return err
}

func checkIndexColumn(idx index.Index, field arrow.Field) error {
	switch v := idx.(type) {
	case index.FTS:
		if field.Type.ID() != arrow.STRING && field.Type.ID() != arrow.LARGE_STRING {
			return errs.InvalidInput("FTS index requires a string column, %q is %s", field.Name, field.Type)
		}
		if _, err := lexical.NewTokenizer(v); err != nil {
			return err
		}
	case index.LabelList:
		switch field.Type.ID() {
		case arrow.LIST, arrow.LARGE_LIST, arrow.FIXED_SIZE_LIST:
		default:
			return errs.InvalidInput("LabelList index requires a list column, %q is %s", field.Name, field.Type)
		}
	case index.BTree, index.Bitmap:
		switch field.Type.ID() {
		case arrow.LIST, arrow.LARGE_LIST, arrow.FIXED_SIZE_LIST, arrow.STRUCT, arrow.MAP:
			return errs.InvalidInput("%s index requires a scalar column, %q is %s", idx.Type(), field.Name, field.Type)
		}
	default:
		if !idx.Type().IsVector() {
			return errs.InvalidInput("index type %s cannot be built", idx.Type())
		}
		vt, ok := asVectorType(field.Type)
		if !ok {
			return errs.InvalidInput("%s index requires a vector column, %q is %s", idx.Type(), field.Name, field.Type)
		}
		dt, _ := index.DistanceOf(idx)
		if err := vt.checkDistance(dt); err != nil {
			return err
		}
		if sub := subVectors(idx); sub != nil && vt.dim > 0 && vt.dim%int(*sub) != 0 {
			return errs.InvalidInput("num_sub_vectors %d must divide the vector dimension %d", *sub, vt.dim)
		}
	}
	return nil
}

func subVectors(idx index.Index) *uint32 {
	switch v := idx.(type) {
	case index.IvfPq:
		return v.NumSubVectors
	case index.IvfHnswPq:
		return v.NumSubVectors
	default:
		return nil
	}
}

// indexOf decodes the parameters of a recorded index.
func indexOf(entry manifest.Index) (index.Index, error) {
	typ, err := index.ParseType(entry.Type)
	if err != nil {
		return nil, err
	}
	return index.Unmarshal(typ, entry.Params)
}

func (t *Table) ListIndices(ctx context.Context) ([]index.IndexConfig, error) {
	m, err := t.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	configs := make([]index.IndexConfig, 0, len(m.Indices))
	for _, entry := range m.Indices {
		typ, err := index.ParseType(entry.Type)
		if err != nil {
			return nil, err
		}
		configs = append(configs, index.IndexConfig{
			IndexType: typ.WireName(),
			Columns:   []string{entry.Column},
			Name:      entry.Name,
		})
	}
	return configs, nil
}

// IndexStats reports how many live rows the index covers.
func (t *Table) IndexStats(ctx context.Context, name string) (index.Statistics, error) {
	m, err := t.snapshot(ctx)
	if err != nil {
		return index.Statistics{}, err
	}
	entry, ok := m.Index(name)
	if !ok {
		return index.Statistics{}, errs.NotFound("index %s was not found", name)
	}
	idx, err := indexOf(entry)
	if err != nil {
		return index.Statistics{}, err
	}

	covered := make(map[uint64]struct{}, len(entry.Fragments))
	for _, id := range entry.Fragments {
		covered[id] = struct{}{}
	}
	stats := index.Statistics{
		IndexType:  idx.Type().WireName(),
		NumIndices: 1,
	}
	if dt, ok := index.DistanceOf(idx); ok {
		stats.DistanceType = dt.String()
	}
	for _, f := range m.Fragments {
		if _, ok := covered[f.ID]; ok {
			stats.NumIndexedRows += f.LiveRows()
		} else {
			stats.NumUnindexedRows += f.LiveRows()
		}
	}
	return stats, nil
}
