package predicate

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/xwb1989/sqlparser"
)

type likeCache struct {
	mu sync.Mutex
	m  map[string]*regexp.Regexp
}

func newLikeCache() *likeCache {
	return &likeCache{m: make(map[string]*regexp.Regexp)}
}

func (c *likeCache) regexp(expr string) (*regexp.Regexp, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if re, ok := c.m[expr]; ok {
		return re, nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	c.m[expr] = re
	return re, nil
}

func (p *Predicate) like(left, pattern value, escape sqlparser.Expr, r *row) (bool, error) {
	if left.k != kindString || pattern.k != kindString {
		return false, fmt.Errorf("LIKE requires strings, got %s and %s", left, pattern)
	}

	esc := '\\'
	if escape != nil {
		ev, err := p.eval(escape, r)
		if err != nil {
			return false, err
		}
		if ev.k != kindString || len([]rune(ev.s)) != 1 {
			return false, fmt.Errorf("ESCAPE requires a single character")
		}
		esc = []rune(ev.s)[0]
	}

	re, err := p.likes.regexp(likeToRegexp(pattern.s, esc))
	if err != nil {
		return false, err
	}
	return re.MatchString(left.s), nil
}

// likeToRegexp translates a LIKE pattern: % matches any run, _ one character.
func likeToRegexp(pattern string, escape rune) string {
	var b strings.Builder
	b.WriteString("(?s)^")
	escaped := false
	for _, ch := range pattern {
		switch {
		case escaped:
			b.WriteString(regexp.QuoteMeta(string(ch)))
			escaped = false
		case ch == escape:
			escaped = true
		case ch == '%':
			b.WriteString(".*")
		case ch == '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(ch)))
		}
	}
	if escaped {
		b.WriteString(regexp.QuoteMeta(string(escape)))
	}
	b.WriteString("$")
	return b.String()
}
