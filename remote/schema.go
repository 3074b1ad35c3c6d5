package remote

import (
	"github.com/apache/arrow-go/v18/arrow"

	"github.com/hupe1980/vectable/errs"
)

// JSONSchema is the JSON rendering of an Arrow schema used by the REST API.
type JSONSchema struct {
	Fields   []JSONField       `json:"fields"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// JSONField is one field of a JSONSchema.
type JSONField struct {
	Name     string   `json:"name"`
	Type     JSONType `json:"type"`
	Nullable bool     `json:"nullable"`
}

// JSONType is a data type. Fields holds the item field of lists and the
// children of structs; Length the size of fixed-size lists.
type JSONType struct {
	Type   string      `json:"type"`
	Fields []JSONField `json:"fields,omitempty"`
	Length *int        `json:"length,omitempty"`
}

var primitiveNames = map[arrow.Type]string{
	arrow.NULL:         "null",
	arrow.BOOL:         "boolean",
	arrow.INT8:         "int8",
	arrow.INT16:        "int16",
	arrow.INT32:        "int32",
	arrow.INT64:        "int64",
	arrow.UINT8:        "uint8",
	arrow.UINT16:       "uint16",
	arrow.UINT32:       "uint32",
	arrow.UINT64:       "uint64",
	arrow.FLOAT16:      "float16",
	arrow.FLOAT32:      "float",
	arrow.FLOAT64:      "double",
	arrow.STRING:       "string",
	arrow.LARGE_STRING: "large_string",
	arrow.BINARY:       "binary",
	arrow.LARGE_BINARY: "large_binary",
	arrow.DATE32:       "date32:day",
	arrow.DATE64:       "date64:ms",
}

var primitiveTypes = map[string]arrow.DataType{
	"null":         arrow.Null,
	"boolean":      arrow.FixedWidthTypes.Boolean,
	"int8":         arrow.PrimitiveTypes.Int8,
	"int16":        arrow.PrimitiveTypes.Int16,
	"int32":        arrow.PrimitiveTypes.Int32,
	"int64":        arrow.PrimitiveTypes.Int64,
	"uint8":        arrow.PrimitiveTypes.Uint8,
	"uint16":       arrow.PrimitiveTypes.Uint16,
	"uint32":       arrow.PrimitiveTypes.Uint32,
	"uint64":       arrow.PrimitiveTypes.Uint64,
	"float16":      arrow.FixedWidthTypes.Float16,
	"float":        arrow.PrimitiveTypes.Float32,
	"double":       arrow.PrimitiveTypes.Float64,
	"string":       arrow.BinaryTypes.String,
	"large_string": arrow.BinaryTypes.LargeString,
	"binary":       arrow.BinaryTypes.Binary,
	"large_binary": arrow.BinaryTypes.LargeBinary,
	"date32:day":   arrow.FixedWidthTypes.Date32,
	"date64:ms":    arrow.FixedWidthTypes.Date64,
}

// NewJSONSchema renders an Arrow schema.
func NewJSONSchema(s *arrow.Schema) (JSONSchema, error) {
	out := JSONSchema{Fields: make([]JSONField, 0, s.NumFields())}
	for _, f := range s.Fields() {
		jf, err := newJSONField(f)
		if err != nil {
			return JSONSchema{}, err
		}
		out.Fields = append(out.Fields, jf)
	}
	if md := s.Metadata(); md.Len() > 0 {
		out.Metadata = make(map[string]string, md.Len())
		for i, k := range md.Keys() {
			out.Metadata[k] = md.Values()[i]
		}
	}
	return out, nil
}

func newJSONField(f arrow.Field) (JSONField, error) {
	jt, err := newJSONType(f.Type)
	if err != nil {
		return JSONField{}, errs.Wrap(errs.ErrInvalidInput, err, "field %q", f.Name)
	}
	return JSONField{Name: f.Name, Type: jt, Nullable: f.Nullable}, nil
}

func newJSONType(dt arrow.DataType) (JSONType, error) {
	if name, ok := primitiveNames[dt.ID()]; ok {
		return JSONType{Type: name}, nil
	}
	switch t := dt.(type) {
	case *arrow.ListType:
		item, err := newJSONField(t.ElemField())
		return JSONType{Type: "list", Fields: []JSONField{item}}, err
	case *arrow.LargeListType:
		item, err := newJSONField(t.ElemField())
		return JSONType{Type: "large_list", Fields: []JSONField{item}}, err
	case *arrow.FixedSizeListType:
		item, err := newJSONField(t.ElemField())
		n := int(t.Len())
		return JSONType{Type: "fixed_size_list", Fields: []JSONField{item}, Length: &n}, err
	case *arrow.StructType:
		children := make([]JSONField, 0, t.NumFields())
		for _, f := range t.Fields() {
			jf, err := newJSONField(f)
			if err != nil {
				return JSONType{}, err
			}
			children = append(children, jf)
		}
		return JSONType{Type: "struct", Fields: children}, nil
	}
	return JSONType{}, errs.NotSupported("data type %s has no JSON rendering", dt)
}

// ArrowSchema converts s back into an Arrow schema.
func (s JSONSchema) ArrowSchema() (*arrow.Schema, error) {
	fields := make([]arrow.Field, 0, len(s.Fields))
	for _, jf := range s.Fields {
		f, err := jf.arrowField()
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	var md *arrow.Metadata
	if len(s.Metadata) > 0 {
		m := arrow.MetadataFrom(s.Metadata)
		md = &m
	}
	return arrow.NewSchema(fields, md), nil
}

func (f JSONField) arrowField() (arrow.Field, error) {
	dt, err := f.Type.arrowType()
	if err != nil {
		return arrow.Field{}, errs.Wrap(errs.ErrInvalidInput, err, "field %q", f.Name)
	}
	return arrow.Field{Name: f.Name, Type: dt, Nullable: f.Nullable}, nil
}

func (t JSONType) arrowType() (arrow.DataType, error) {
	if dt, ok := primitiveTypes[t.Type]; ok {
		return dt, nil
	}
	switch t.Type {
	case "list", "large_list", "fixed_size_list":
		if len(t.Fields) != 1 {
			return nil, errs.InvalidInput("%s needs exactly one item field, got %d", t.Type, len(t.Fields))
		}
		item, err := t.Fields[0].arrowField()
		if err != nil {
			return nil, err
		}
		switch t.Type {
		case "list":
			return arrow.ListOfField(item), nil
		case "large_list":
			return arrow.LargeListOfField(item), nil
		}
		if t.Length == nil || *t.Length <= 0 {
			return nil, errs.InvalidInput("fixed_size_list needs a positive length")
		}
		return arrow.FixedSizeListOfField(int32(*t.Length), item), nil
	case "struct":
		children := make([]arrow.Field, 0, len(t.Fields))
		for _, jf := range t.Fields {
			f, err := jf.arrowField()
			if err != nil {
				return nil, err
			}
			children = append(children, f)
		}
		return arrow.StructOf(children...), nil
	}
	return nil, errs.InvalidInput("unknown data type %q", t.Type)
}
