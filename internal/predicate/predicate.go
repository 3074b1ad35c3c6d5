// Package predicate parses SQL WHERE expressions and evaluates them over
// Arrow record batches.
//
// Supported: AND, OR, NOT, the comparison operators, IN, BETWEEN, LIKE,
// IS [NOT] NULL, IS [NOT] TRUE/FALSE, arithmetic on numbers and literals.
// Evaluation follows SQL three-valued logic: a row matches only when the
// predicate is TRUE, never when it is NULL.
package predicate

import (
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/xwb1989/sqlparser"

	"github.com/hupe1980/vectable/errs"
)

// Predicate is a parsed filter expression. It is safe for concurrent use.
type Predicate struct {
	src     string
	expr    sqlparser.Expr
	columns []string
	likes   *likeCache
}

// Parse parses a SQL boolean expression such as "region = 'west' AND id > 3".
func Parse(filter string) (*Predicate, error) {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return nil, errs.InvalidInput("empty filter")
	}

	stmt, err := sqlparser.Parse("select * from t where " + filter)
	if err != nil {
		return nil, errs.Wrap(errs.ErrInvalidInput, err, "invalid filter %q", filter)
	}
	sel, ok := stmt.(*sqlparser.Select)
	if !ok || sel.Where == nil || sel.GroupBy != nil || sel.Having != nil || sel.OrderBy != nil || sel.Limit != nil {
		return nil, errs.InvalidInput("invalid filter %q: not a boolean expression", filter)
	}

	return newPredicate(filter, sel.Where.Expr)
}

// newPredicate collects the columns referenced by expr and rejects the
// constructs the evaluator cannot handle.
func newPredicate(src string, expr sqlparser.Expr) (*Predicate, error) {
	p := &Predicate{
		src:   src,
		expr:  expr,
		likes: newLikeCache(),
	}

	seen := make(map[string]bool)
	err := sqlparser.Walk(func(node sqlparser.SQLNode) (bool, error) {
		switch n := node.(type) {
		case *sqlparser.ColName:
			if !n.Qualifier.IsEmpty() {
				return false, errs.InvalidInput("invalid expression %q: qualified column %s", src, sqlparser.String(n))
			}
			name := n.Name.String()
			if !seen[name] {
				seen[name] = true
				p.columns = append(p.columns, name)
			}
		case *sqlparser.Subquery, *sqlparser.FuncExpr, *sqlparser.CaseExpr:
			return false, errs.NotSupported("expression %q: %s is not supported", src, sqlparser.String(n))
		}
		return true, nil
	}, p.expr)
	if err != nil {
		return nil, err
	}

	return p, nil
}

// MustParse is like Parse but panics on error. For tests and constants.
func MustParse(filter string) *Predicate {
	p, err := Parse(filter)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the source expression.
func (p *Predicate) String() string {
	return p.src
}

// Columns returns the referenced column names in order of appearance.
func (p *Predicate) Columns() []string {
	return append([]string(nil), p.columns...)
}

// Validate checks that every referenced column exists in schema with a type
// the evaluator understands.
func (p *Predicate) Validate(schema *arrow.Schema) error {
	for _, name := range p.columns {
		field, ok := lookupField(schema, name)
		if !ok {
			return errs.InvalidInput("filter %q references unknown column %q", p.src, name)
		}
		if !supportedType(field.Type) {
			return errs.InvalidInput("filter %q: column %q of type %s cannot be filtered", p.src, name, field.Type)
		}
	}
	return nil
}

func lookupField(schema *arrow.Schema, name string) (arrow.Field, bool) {
	if idx := schema.FieldIndices(name); len(idx) > 0 {
		return schema.Field(idx[0]), true
	}
	for _, f := range schema.Fields() {
		if strings.EqualFold(f.Name, name) {
			return f, true
		}
	}
	return arrow.Field{}, false
}

func lookupColumn(rec arrow.Record, name string) (arrow.Array, bool) {
	schema := rec.Schema()
	if idx := schema.FieldIndices(name); len(idx) > 0 {
		return rec.Column(idx[0]), true
	}
	for i, f := range schema.Fields() {
		if strings.EqualFold(f.Name, name) {
			return rec.Column(i), true
		}
	}
	return nil, false
}
