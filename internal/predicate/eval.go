package predicate

import (
	"fmt"
	"math"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/xwb1989/sqlparser"

	"github.com/hupe1980/vectable/errs"
)

type row struct {
	cols map[string]arrow.Array
	i    int
}

func (p *Predicate) bind(rec arrow.Record) (map[string]arrow.Array, error) {
	cols := make(map[string]arrow.Array, len(p.columns))
	for _, name := range p.columns {
		col, ok := lookupColumn(rec, name)
		if !ok {
			return nil, errs.InvalidInput("filter %q references unknown column %q", p.src, name)
		}
		cols[name] = col
	}
	return cols, nil
}

// Evaluate returns the indices of the rows of rec for which the predicate is
// TRUE.
func (p *Predicate) Evaluate(rec arrow.Record) (*roaring.Bitmap, error) {
	cols, err := p.bind(rec)
	if err != nil {
		return nil, err
	}

	out := roaring.New()
	r := &row{cols: cols}
	for i := 0; i < int(rec.NumRows()); i++ {
		r.i = i
		ok, err := p.test(r)
		if err != nil {
			return nil, err
		}
		if ok {
			out.Add(uint32(i))
		}
	}
	return out, nil
}

// Matches reports whether the predicate is TRUE for row i of rec.
func (p *Predicate) Matches(rec arrow.Record, i int) (bool, error) {
	cols, err := p.bind(rec)
	if err != nil {
		return false, err
	}
	return p.test(&row{cols: cols, i: i})
}

func (p *Predicate) test(r *row) (bool, error) {
	v, err := p.eval(p.expr, r)
	if err != nil {
		return false, errs.InvalidInput("filter %q: %v", p.src, err)
	}
	b, known, err := truth(v)
	if err != nil {
		return false, errs.InvalidInput("filter %q: %v", p.src, err)
	}
	return known && b, nil
}

// truth converts v into a three-valued boolean: (value, known).
func truth(v value) (bool, bool, error) {
	switch v.k {
	case kindNull:
		return false, false, nil
	case kindBool:
		return v.b, true, nil
	case kindInt:
		return v.i != 0, true, nil
	case kindFloat:
		return v.f != 0, true, nil
	default:
		return false, false, fmt.Errorf("%s is not a boolean", v)
	}
}

func (p *Predicate) eval(e sqlparser.Expr, r *row) (value, error) {
	switch n := e.(type) {
	case *sqlparser.ParenExpr:
		return p.eval(n.Expr, r)

	case *sqlparser.AndExpr:
		return p.logical(n.Left, n.Right, r, false)

	case *sqlparser.OrExpr:
		return p.logical(n.Left, n.Right, r, true)

	case *sqlparser.NotExpr:
		return p.not(n.Expr, r)

	case *sqlparser.ComparisonExpr:
		return p.comparison(n, r)

	case *sqlparser.RangeCond:
		return p.between(n, r)

	case *sqlparser.IsExpr:
		return p.is(n, r)

	case *sqlparser.SQLVal:
		return literal(n)

	case *sqlparser.NullVal:
		return null, nil

	case sqlparser.BoolVal:
		return boolValue(bool(n)), nil

	case *sqlparser.ColName:
		return cell(r.cols[n.Name.String()], r.i)

	case *sqlparser.UnaryExpr:
		return p.unary(n, r)

	case *sqlparser.BinaryExpr:
		return p.arithmetic(n, r)

	default:
		return null, fmt.Errorf("unsupported expression %s", sqlparser.String(e))
	}
}

// logical evaluates AND (or=false) and OR (or=true) with SQL null rules.
func (p *Predicate) logical(left, right sqlparser.Expr, r *row, or bool) (value, error) {
	lv, err := p.eval(left, r)
	if err != nil {
		return null, err
	}
	lb, lknown, err := truth(lv)
	if err != nil {
		return null, err
	}
	// Short circuit: FALSE AND x, TRUE OR x.
	if lknown && lb == or {
		return boolValue(or), nil
	}

	rv, err := p.eval(right, r)
	if err != nil {
		return null, err
	}
	rb, rknown, err := truth(rv)
	if err != nil {
		return null, err
	}
	if rknown && rb == or {
		return boolValue(or), nil
	}
	if !lknown || !rknown {
		return null, nil
	}
	return boolValue(!or), nil
}

func (p *Predicate) not(e sqlparser.Expr, r *row) (value, error) {
	v, err := p.eval(e, r)
	if err != nil {
		return null, err
	}
	b, known, err := truth(v)
	if err != nil || !known {
		return null, err
	}
	return boolValue(!b), nil
}

func (p *Predicate) comparison(n *sqlparser.ComparisonExpr, r *row) (value, error) {
	left, err := p.eval(n.Left, r)
	if err != nil {
		return null, err
	}

	switch n.Operator {
	case sqlparser.InStr, sqlparser.NotInStr:
		res, err := p.in(left, n.Right, r)
		if err != nil || res.isNull() || n.Operator == sqlparser.InStr {
			return res, err
		}
		return boolValue(!res.b), nil
	}

	right, err := p.eval(n.Right, r)
	if err != nil {
		return null, err
	}

	if n.Operator == sqlparser.NullSafeEqualStr {
		if left.isNull() || right.isNull() {
			return boolValue(left.isNull() && right.isNull()), nil
		}
		c, err := compare(left, right)
		return boolValue(c == 0), err
	}

	if left.isNull() || right.isNull() {
		return null, nil
	}

	switch n.Operator {
	case sqlparser.LikeStr, sqlparser.NotLikeStr:
		matched, err := p.like(left, right, n.Escape, r)
		if err != nil {
			return null, err
		}
		return boolValue(matched == (n.Operator == sqlparser.LikeStr)), nil
	case sqlparser.RegexpStr, sqlparser.NotRegexpStr:
		if left.k != kindString || right.k != kindString {
			return null, fmt.Errorf("regexp requires strings")
		}
		re, err := p.likes.regexp(right.s)
		if err != nil {
			return null, err
		}
		return boolValue(re.MatchString(left.s) == (n.Operator == sqlparser.RegexpStr)), nil
	}

	c, err := compare(left, right)
	if err != nil {
		return null, err
	}
	switch n.Operator {
	case sqlparser.EqualStr:
		return boolValue(c == 0), nil
	case sqlparser.NotEqualStr:
		return boolValue(c != 0), nil
	case sqlparser.LessThanStr:
		return boolValue(c < 0), nil
	case sqlparser.LessEqualStr:
		return boolValue(c <= 0), nil
	case sqlparser.GreaterThanStr:
		return boolValue(c > 0), nil
	case sqlparser.GreaterEqualStr:
		return boolValue(c >= 0), nil
	default:
		return null, fmt.Errorf("unsupported operator %s", n.Operator)
	}
}

// in evaluates left IN (list): TRUE on a match, NULL if no match but left or
// a list element is NULL, FALSE otherwise.
func (p *Predicate) in(left value, list sqlparser.Expr, r *row) (value, error) {
	tuple, ok := list.(sqlparser.ValTuple)
	if !ok {
		return null, fmt.Errorf("IN requires a value list, got %s", sqlparser.String(list))
	}
	if left.isNull() {
		return null, nil
	}
	sawNull := false
	for _, e := range tuple {
		v, err := p.eval(e, r)
		if err != nil {
			return null, err
		}
		if v.isNull() {
			sawNull = true
			continue
		}
		c, err := compare(left, v)
		if err != nil {
			return null, err
		}
		if c == 0 {
			return boolValue(true), nil
		}
	}
	if sawNull {
		return null, nil
	}
	return boolValue(false), nil
}

func (p *Predicate) between(n *sqlparser.RangeCond, r *row) (value, error) {
	v, err := p.eval(n.Left, r)
	if err != nil {
		return null, err
	}
	from, err := p.eval(n.From, r)
	if err != nil {
		return null, err
	}
	to, err := p.eval(n.To, r)
	if err != nil {
		return null, err
	}

	lower, err := bound(v, from, func(c int) bool { return c >= 0 })
	if err != nil {
		return null, err
	}
	upper, err := bound(v, to, func(c int) bool { return c <= 0 })
	if err != nil {
		return null, err
	}

	var res value
	switch {
	case lower.k == kindBool && !lower.b, upper.k == kindBool && !upper.b:
		res = boolValue(false)
	case lower.isNull() || upper.isNull():
		return null, nil
	default:
		res = boolValue(true)
	}
	if n.Operator == sqlparser.NotBetweenStr {
		res.b = !res.b
	}
	return res, nil
}

func bound(v, limit value, ok func(int) bool) (value, error) {
	if v.isNull() || limit.isNull() {
		return null, nil
	}
	c, err := compare(v, limit)
	if err != nil {
		return null, err
	}
	return boolValue(ok(c)), nil
}

func (p *Predicate) is(n *sqlparser.IsExpr, r *row) (value, error) {
	v, err := p.eval(n.Expr, r)
	if err != nil {
		return null, err
	}
	switch n.Operator {
	case sqlparser.IsNullStr:
		return boolValue(v.isNull()), nil
	case sqlparser.IsNotNullStr:
		return boolValue(!v.isNull()), nil
	}

	b, known, err := truth(v)
	if err != nil {
		return null, err
	}
	switch n.Operator {
	case sqlparser.IsTrueStr:
		return boolValue(known && b), nil
	case sqlparser.IsNotTrueStr:
		return boolValue(!known || !b), nil
	case sqlparser.IsFalseStr:
		return boolValue(known && !b), nil
	case sqlparser.IsNotFalseStr:
		return boolValue(!known || b), nil
	default:
		return null, fmt.Errorf("unsupported operator %s", n.Operator)
	}
}

func (p *Predicate) unary(n *sqlparser.UnaryExpr, r *row) (value, error) {
	switch n.Operator {
	case sqlparser.BangStr:
		return p.not(n.Expr, r)
	case sqlparser.UPlusStr, sqlparser.UMinusStr:
	default:
		return null, fmt.Errorf("unsupported operator %s", n.Operator)
	}

	v, err := p.eval(n.Expr, r)
	if err != nil || v.isNull() {
		return null, err
	}
	if !v.isNumber() {
		return null, fmt.Errorf("cannot negate %s", v)
	}
	if n.Operator == sqlparser.UMinusStr {
		v.i, v.f = -v.i, -v.f
	}
	return v, nil
}

func (p *Predicate) arithmetic(n *sqlparser.BinaryExpr, r *row) (value, error) {
	a, err := p.eval(n.Left, r)
	if err != nil {
		return null, err
	}
	b, err := p.eval(n.Right, r)
	if err != nil {
		return null, err
	}
	if a.isNull() || b.isNull() {
		return null, nil
	}
	if !a.isNumber() || !b.isNumber() {
		return null, fmt.Errorf("arithmetic requires numbers, got %s %s %s", a, n.Operator, b)
	}

	if a.k == kindInt && b.k == kindInt {
		switch n.Operator {
		case sqlparser.PlusStr:
			return value{k: kindInt, i: a.i + b.i}, nil
		case sqlparser.MinusStr:
			return value{k: kindInt, i: a.i - b.i}, nil
		case sqlparser.MultStr:
			return value{k: kindInt, i: a.i * b.i}, nil
		case sqlparser.ModStr, sqlparser.IntDivStr:
			if b.i == 0 {
				return null, nil
			}
			if n.Operator == sqlparser.ModStr {
				return value{k: kindInt, i: a.i % b.i}, nil
			}
			return value{k: kindInt, i: a.i / b.i}, nil
		}
	}

	x, y := a.float(), b.float()
	switch n.Operator {
	case sqlparser.PlusStr:
		return value{k: kindFloat, f: x + y}, nil
	case sqlparser.MinusStr:
		return value{k: kindFloat, f: x - y}, nil
	case sqlparser.MultStr:
		return value{k: kindFloat, f: x * y}, nil
	case sqlparser.DivStr:
		if y == 0 {
			return null, nil
		}
		return value{k: kindFloat, f: x / y}, nil
	case sqlparser.ModStr:
		if y == 0 {
			return null, nil
		}
		return value{k: kindFloat, f: math.Mod(x, y)}, nil
	default:
		return null, fmt.Errorf("unsupported operator %s", n.Operator)
	}
}
