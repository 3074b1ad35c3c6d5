package index

import (
	"bytes"
	"reflect"
	"strings"

	gojson "github.com/goccy/go-json"

	"github.com/hupe1980/vectable/distance"
	"github.com/hupe1980/vectable/errs"
)

// Kind tags accepted by Resolve.
const (
	KindBTree     = "BTree"
	KindBitmap    = "Bitmap"
	KindLabelList = "LabelList"
	KindFTS       = "FTS"
	KindIvfPq     = "IvfPq"
	KindHnswPq    = "HnswPq"
	KindHnswSq    = "HnswSq"
)

// Resolve validates a descriptor and normalizes it into an Index.
// A nil descriptor resolves to Auto.
func Resolve(d Descriptor) (Index, error) {
	if d == nil || isNilPointer(d) {
		return Auto{}, nil
	}

	kind := d.Kind()
	if i := strings.LastIndexByte(kind, '.'); i >= 0 {
		kind = kind[i+1:]
	}

	switch kind {
	case KindBTree:
		if err := decodeParams(d, kind, &BTreeParams{}); err != nil {
			return nil, err
		}
		return BTree{}, nil
	case KindBitmap:
		if err := decodeParams(d, kind, &BitmapParams{}); err != nil {
			return nil, err
		}
		return Bitmap{}, nil
	case KindLabelList:
		if err := decodeParams(d, kind, &LabelListParams{}); err != nil {
			return nil, err
		}
		return LabelList{}, nil
	case KindFTS:
		var p FTSParams
		if err := decodeParams(d, kind, &p); err != nil {
			return nil, err
		}
		if raw, ok := asRaw(d); ok && isExplicitNull(raw.Params, "max_token_length") {
			p.MaxTokenLength = Ptr(0)
		}
		return resolveFTS(p)
	case KindIvfPq:
		var p IvfPqParams
		if err := decodeParams(d, kind, &p); err != nil {
			return nil, err
		}
		dt, err := distance.Parse(valueOr(p.DistanceType, DefaultDistanceType))
		if err != nil {
			return nil, err
		}
		return IvfPq{
			DistanceType:  dt,
			NumPartitions: cloneU32(p.NumPartitions),
			NumSubVectors: cloneU32(p.NumSubVectors),
			NumBits:       valueOr(p.NumBits, DefaultNumBits),
			MaxIterations: valueOr(p.MaxIterations, DefaultMaxIterations),
			SampleRate:    valueOr(p.SampleRate, DefaultSampleRate),
		}, nil
	case KindHnswPq:
		var p HnswPqParams
		if err := decodeParams(d, kind, &p); err != nil {
			return nil, err
		}
		dt, err := distance.Parse(valueOr(p.DistanceType, DefaultDistanceType))
		if err != nil {
			return nil, err
		}
		return IvfHnswPq{
			DistanceType:   dt,
			NumPartitions:  cloneU32(p.NumPartitions),
			NumSubVectors:  cloneU32(p.NumSubVectors),
			NumBits:        valueOr(p.NumBits, DefaultNumBits),
			MaxIterations:  valueOr(p.MaxIterations, DefaultMaxIterations),
			SampleRate:     valueOr(p.SampleRate, DefaultSampleRate),
			NumEdges:       valueOr(p.M, DefaultNumEdges),
			EfConstruction: valueOr(p.EfConstruction, DefaultEfConstruction),
		}, nil
	case KindHnswSq:
		var p HnswSqParams
		if err := decodeParams(d, kind, &p); err != nil {
			return nil, err
		}
		dt, err := distance.Parse(valueOr(p.DistanceType, DefaultDistanceType))
		if err != nil {
			return nil, err
		}
		return IvfHnswSq{
			DistanceType:   dt,
			NumPartitions:  cloneU32(p.NumPartitions),
			MaxIterations:  valueOr(p.MaxIterations, DefaultMaxIterations),
			SampleRate:     valueOr(p.SampleRate, DefaultSampleRate),
			NumEdges:       valueOr(p.M, DefaultNumEdges),
			EfConstruction: valueOr(p.EfConstruction, DefaultEfConstruction),
		}, nil
	default:
		return nil, errs.InvalidInput(
			"invalid index type '%s'. Must be one of BTree, Bitmap, LabelList, FTS, IvfPq, HnswPq, or HnswSq",
			kind)
	}
}

// decodeParams fills dst (a pointer to the typed params of kind) from d.
// Typed descriptors are copied; raw descriptors are decoded strictly.
func decodeParams(d Descriptor, kind string, dst any) error {
	if raw, ok := asRaw(d); ok {
		if len(bytes.TrimSpace(raw.Params)) == 0 {
			return nil
		}
		dec := gojson.NewDecoder(bytes.NewReader(raw.Params))
		dec.DisallowUnknownFields()
		if err := dec.Decode(dst); err != nil {
			return errs.Wrap(errs.ErrInvalidInput, err, "invalid %s parameters", kind)
		}
		return nil
	}

	src := reflect.ValueOf(d)
	if src.Kind() == reflect.Pointer {
		src = src.Elem()
	}
	target := reflect.ValueOf(dst).Elem()
	if src.Type() != target.Type() {
		return errs.InvalidInput("descriptor of kind %s has unsupported type %T", kind, d)
	}
	target.Set(src)
	return nil
}

// isExplicitNull reports whether the JSON object params sets key to null.
// An absent key is not null.
func isExplicitNull(params []byte, key string) bool {
	if len(bytes.TrimSpace(params)) == 0 {
		return false
	}
	var fields map[string]gojson.RawMessage
	if err := gojson.Unmarshal(params, &fields); err != nil {
		return false
	}
	v, ok := fields[key]
	return ok && bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

func asRaw(d Descriptor) (RawDescriptor, bool) {
	switch r := d.(type) {
	case RawDescriptor:
		return r, true
	case *RawDescriptor:
		return *r, true
	default:
		return RawDescriptor{}, false
	}
}

func isNilPointer(d Descriptor) bool {
	v := reflect.ValueOf(d)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

func cloneU32(p *uint32) *uint32 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
