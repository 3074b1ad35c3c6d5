package predicate

import (
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/xwb1989/sqlparser"

	"github.com/hupe1980/vectable/errs"
)

// Expr is a scalar SQL expression such as "price * 2" or "'west'", evaluated
// per row. Column references read the row's current values.
type Expr struct {
	p *Predicate
}

// ParseExpr parses a single SQL value expression.
func ParseExpr(src string) (*Expr, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, errs.InvalidInput("empty expression")
	}

	stmt, err := sqlparser.Parse("select " + src + " from t")
	if err != nil {
		return nil, errs.Wrap(errs.ErrInvalidInput, err, "invalid expression %q", src)
	}
	sel, ok := stmt.(*sqlparser.Select)
	if !ok || len(sel.SelectExprs) != 1 || len(sel.From) != 1 || sel.Where != nil ||
		sel.GroupBy != nil || sel.Having != nil || sel.OrderBy != nil || sel.Limit != nil {
		return nil, errs.InvalidInput("invalid expression %q: not a single value", src)
	}
	ae, ok := sel.SelectExprs[0].(*sqlparser.AliasedExpr)
	if !ok || !ae.As.IsEmpty() {
		return nil, errs.InvalidInput("invalid expression %q: not a single value", src)
	}

	p, err := newPredicate(src, ae.Expr)
	if err != nil {
		return nil, err
	}
	return &Expr{p: p}, nil
}

func (e *Expr) String() string {
	return e.p.src
}

// Columns returns the referenced column names in order of appearance.
func (e *Expr) Columns() []string {
	return e.p.Columns()
}

// Validate checks the referenced columns against schema.
func (e *Expr) Validate(schema *arrow.Schema) error {
	return e.p.Validate(schema)
}

// Values evaluates the expression for every row of rec. Each result is nil,
// bool, int64, float64 or string.
func (e *Expr) Values(rec arrow.Record) ([]any, error) {
	cols, err := e.p.bind(rec)
	if err != nil {
		return nil, err
	}

	out := make([]any, rec.NumRows())
	r := &row{cols: cols}
	for i := range out {
		r.i = i
		v, err := e.p.eval(e.p.expr, r)
		if err != nil {
			return nil, errs.InvalidInput("expression %q: %v", e.p.src, err)
		}
		out[i] = v.native()
	}
	return out, nil
}
