package commands

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	gojson "github.com/goccy/go-json"
	"github.com/goccy/go-yaml"

	"github.com/hupe1980/vectable/index"
	"github.com/hupe1980/vectable/remote"
)

// loadFile decodes a YAML or JSON file into v.
func loadFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := gojson.Unmarshal(data, v); err != nil {
			return fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		// YAML is a superset of JSON.
		if err := yaml.Unmarshal(data, v); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}
	return nil
}

// loadDescriptor reads an index descriptor file:
//
//	type: IvfPq
//	distance_type: cosine
//	num_sub_vectors: 16
func loadDescriptor(path string) (index.RawDescriptor, error) {
	var fields map[string]any
	if err := loadFile(path, &fields); err != nil {
		return index.RawDescriptor{}, err
	}
	kind, _ := fields["type"].(string)
	if kind == "" {
		return index.RawDescriptor{}, fmt.Errorf("descriptor %s has no type", path)
	}
	delete(fields, "type")

	params, err := gojson.Marshal(fields)
	if err != nil {
		return index.RawDescriptor{}, fmt.Errorf("failed to encode parameters: %w", err)
	}
	return index.RawDescriptor{Type: kind, Params: params}, nil
}

// loadSchema reads a schema file in the remote JSON schema format.
func loadSchema(path string) (*arrow.Schema, error) {
	var s remote.JSONSchema
	if err := loadFile(path, &s); err != nil {
		return nil, err
	}
	return s.ArrowSchema()
}

// openRows opens an Arrow IPC file (.arrow, .ipc, .feather) or a JSON lines
// file decoded with schema. The caller releases the reader.
func openRows(path string, schema *arrow.Schema) (array.RecordReader, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".arrow", ".ipc", ".feather":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()
		return readIPCFile(f)
	default:
		if schema == nil {
			return nil, fmt.Errorf("a schema is required to read %s, use --schema", path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read file %s: %w", path, err)
		}
		return array.NewJSONReader(bytes.NewReader(data), schema, array.WithChunk(1024)), nil
	}
}

// readIPCFile loads every batch of an Arrow IPC file.
func readIPCFile(f *os.File) (array.RecordReader, error) {
	r, err := ipc.NewFileReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read Arrow file %s: %w", f.Name(), err)
	}
	defer r.Close()

	recs := make([]arrow.Record, 0, r.NumRecords())
	defer func() {
		for _, rec := range recs {
			rec.Release()
		}
	}()
	for i := 0; i < r.NumRecords(); i++ {
		rec, err := r.RecordAt(i)
		if err != nil {
			return nil, fmt.Errorf("failed to read batch %d of %s: %w", i, f.Name(), err)
		}
		recs = append(recs, rec)
	}
	return array.NewRecordReader(r.Schema(), recs)
}
