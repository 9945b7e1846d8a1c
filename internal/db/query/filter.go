package query

import (
	"strings"
)

// Filter builds a parameterized WHERE clause. Values are always bound as
// placeholders; column names must come from code, never from input.
type Filter struct {
	parts []string
	args  []interface{}
	join  string
	depth int
}

func NewFilter() *Filter {
	return &Filter{}
}

func (f *Filter) add(expr string, args ...interface{}) *Filter {
	if n := len(f.parts); n > 0 && f.parts[n-1] != "(" {
		join := f.join
		if join == "" {
			join = "AND"
		}
		f.parts = append(f.parts, join)
	}
	f.join = ""
	f.parts = append(f.parts, expr)
	f.args = append(f.args, args...)
	return f
}

func (f *Filter) Open() *Filter {
	f.add("(")
	f.depth++
	return f
}

func (f *Filter) Close() *Filter {
	if f.depth > 0 {
		f.parts = append(f.parts, ")")
		f.depth--
	}
	return f
}

// And and Or set the connective for the next predicate; And is the default.
func (f *Filter) And() *Filter {
	f.join = "AND"
	return f
}

func (f *Filter) Or() *Filter {
	f.join = "OR"
	return f
}

func (f *Filter) Equal(column string, value interface{}) *Filter {
	return f.add(column+" = ?", value)
}

func (f *Filter) NotEqual(column string, value interface{}) *Filter {
	return f.add(column+" <> ?", value)
}

func (f *Filter) GreaterThan(column string, value interface{}) *Filter {
	return f.add(column+" > ?", value)
}

func (f *Filter) LessThan(column string, value interface{}) *Filter {
	return f.add(column+" < ?", value)
}

func (f *Filter) Between(column string, v1, v2 interface{}) *Filter {
	return f.add(column+" BETWEEN ? AND ?", v1, v2)
}

// In matches any of values. An empty list matches nothing.
func (f *Filter) In(column string, values ...interface{}) *Filter {
	if len(values) == 0 {
		return f.add("1 = 0")
	}
	return f.add(column+" IN ?", values)
}

// Like matches a case-insensitive substring.
func (f *Filter) Like(column, pattern string) *Filter {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(pattern)
	return f.add("LOWER("+column+") LIKE ?", "%"+strings.ToLower(escaped)+"%")
}

// Empty reports whether no predicate has been added.
func (f *Filter) Empty() bool {
	return f == nil || len(f.parts) == 0
}

// Build returns the clause and its bound arguments. Unbalanced Open calls
// are closed.
func (f *Filter) Build() (string, []interface{}) {
	if f.Empty() {
		return "", nil
	}
	parts := append([]string(nil), f.parts...)
	for i := 0; i < f.depth; i++ {
		parts = append(parts, ")")
	}
	clause := strings.Join(parts, " ")
	clause = strings.ReplaceAll(clause, "( ", "(")
	clause = strings.ReplaceAll(clause, " )", ")")
	return clause, append([]interface{}(nil), f.args...)
}
