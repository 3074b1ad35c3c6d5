package predicate

import (
	"fmt"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/xwb1989/sqlparser"
)

type kind uint8

const (
	kindNull kind = iota
	kindBool
	kindInt
	kindFloat
	kindString
)

// value is one SQL scalar.
type value struct {
	k kind
	b bool
	i int64
	f float64
	s string
}

var null = value{}

func boolValue(b bool) value { return value{k: kindBool, b: b} }

func (v value) isNull() bool { return v.k == kindNull }

func (v value) isNumber() bool { return v.k == kindInt || v.k == kindFloat }

func (v value) float() float64 {
	if v.k == kindInt {
		return float64(v.i)
	}
	return v.f
}

func (v value) native() any {
	switch v.k {
	case kindBool:
		return v.b
	case kindInt:
		return v.i
	case kindFloat:
		return v.f
	case kindString:
		return v.s
	default:
		return nil
	}
}

func (v value) String() string {
	switch v.k {
	case kindBool:
		return strconv.FormatBool(v.b)
	case kindInt:
		return strconv.FormatInt(v.i, 10)
	case kindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case kindString:
		return strconv.Quote(v.s)
	default:
		return "NULL"
	}
}

// compare orders a and b. Both must be non-null.
func compare(a, b value) (int, error) {
	switch {
	case a.k == kindInt && b.k == kindInt:
		return cmpOrdered(a.i, b.i), nil
	case a.isNumber() && b.isNumber():
		return cmpOrdered(a.float(), b.float()), nil
	case a.k == kindString && b.k == kindString:
		return cmpOrdered(a.s, b.s), nil
	case a.k == kindBool && b.k == kindBool:
		switch {
		case a.b == b.b:
			return 0, nil
		case !a.b:
			return -1, nil
		default:
			return 1, nil
		}
	case a.k == kindString && b.isNumber():
		// MySQL-style coercion of quoted numbers.
		f, err := strconv.ParseFloat(a.s, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot compare %s with %s", a, b)
		}
		return cmpOrdered(f, b.float()), nil
	case a.isNumber() && b.k == kindString:
		c, err := compare(b, a)
		return -c, err
	default:
		return 0, fmt.Errorf("cannot compare %s with %s", a, b)
	}
}

func cmpOrdered[T int64 | float64 | string](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func literal(v *sqlparser.SQLVal) (value, error) {
	switch v.Type {
	case sqlparser.StrVal:
		return value{k: kindString, s: string(v.Val)}, nil
	case sqlparser.IntVal:
		i, err := strconv.ParseInt(string(v.Val), 10, 64)
		if err != nil {
			f, ferr := strconv.ParseFloat(string(v.Val), 64)
			if ferr != nil {
				return null, err
			}
			return value{k: kindFloat, f: f}, nil
		}
		return value{k: kindInt, i: i}, nil
	case sqlparser.FloatVal:
		f, err := strconv.ParseFloat(string(v.Val), 64)
		if err != nil {
			return null, err
		}
		return value{k: kindFloat, f: f}, nil
	default:
		return null, fmt.Errorf("unsupported literal %s", sqlparser.String(v))
	}
}

func supportedType(dt arrow.DataType) bool {
	switch dt.ID() {
	case arrow.BOOL,
		arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64,
		arrow.FLOAT32, arrow.FLOAT64,
		arrow.STRING, arrow.LARGE_STRING,
		arrow.DATE32, arrow.DATE64, arrow.TIMESTAMP:
		return true
	default:
		return false
	}
}

// cell reads row i of col.
func cell(col arrow.Array, i int) (value, error) {
	if col.IsNull(i) {
		return null, nil
	}
	switch a := col.(type) {
	case *array.Boolean:
		return boolValue(a.Value(i)), nil
	case *array.Int8:
		return value{k: kindInt, i: int64(a.Value(i))}, nil
	case *array.Int16:
		return value{k: kindInt, i: int64(a.Value(i))}, nil
	case *array.Int32:
		return value{k: kindInt, i: int64(a.Value(i))}, nil
	case *array.Int64:
		return value{k: kindInt, i: a.Value(i)}, nil
	case *array.Uint8:
		return value{k: kindInt, i: int64(a.Value(i))}, nil
	case *array.Uint16:
		return value{k: kindInt, i: int64(a.Value(i))}, nil
	case *array.Uint32:
		return value{k: kindInt, i: int64(a.Value(i))}, nil
	case *array.Uint64:
		return value{k: kindInt, i: int64(a.Value(i))}, nil
	case *array.Float32:
		return value{k: kindFloat, f: float64(a.Value(i))}, nil
	case *array.Float64:
		return value{k: kindFloat, f: a.Value(i)}, nil
	case *array.String:
		return value{k: kindString, s: a.Value(i)}, nil
	case *array.LargeString:
		return value{k: kindString, s: a.Value(i)}, nil
	case *array.Date32:
		return value{k: kindInt, i: int64(a.Value(i))}, nil
	case *array.Date64:
		return value{k: kindInt, i: int64(a.Value(i))}, nil
	case *array.Timestamp:
		return value{k: kindInt, i: int64(a.Value(i))}, nil
	default:
		return null, fmt.Errorf("column of type %s cannot be filtered", col.DataType())
	}
}
