// Package metricexpr turns a metric's opaque SQL expression text (e.g.
// "order_items.quantity * order_items.unit_price") into a structured
// list of the (table, column) slots it references, each tagged with
// its byte span in the original text.
//
// spec.md §9 warns that extracting and later rewriting these slots
// must not depend on "string substitution fragile to substring
// overlap." This package never does string substitution to extract
// refs: it wraps the fragment in a synthetic SELECT and hands it to a
// real SQL parser, the same technique the teacher's parser/expr.go
// uses to recover an Expr from an arbitrary fragment — except here the
// parser is a real, importable one since the teacher's own
// grammar-generated AST types were not retrieved into this pack (see
// DESIGN.md).
package metricexpr

import (
	"encoding/json"
	"fmt"
	"sort"

	pg_query "github.com/pganalyze/pg_query_go/v2"
)

// RefSpan is a single (table, column) reference found inside a metric
// expression, along with its [Start, End) byte offset in the original
// expression text (not the wrapped "SELECT <expr>" text).
type RefSpan struct {
	Table  string
	Column string
	Start  int
	End    int
}

// Parse extracts every qualified column reference ("table.column")
// appearing in expr, in left-to-right order. Unqualified references
// (a bare "column" with no table prefix) are rejected: §3.1 requires
// a metric's expression to name the table for each column it touches,
// since the planner needs to know which physical tables a metric
// spans before any alias exists.
func Parse(expr string) ([]RefSpan, error) {
	wrapped := fmt.Sprintf("SELECT %s", expr)

	tree, err := pg_query.ParseToJSON(wrapped)
	if err != nil {
		return nil, fmt.Errorf("metricexpr: parsing %q: %w", expr, err)
	}

	var doc any
	if err := json.Unmarshal([]byte(tree), &doc); err != nil {
		return nil, fmt.Errorf("metricexpr: decoding parse tree for %q: %w", expr, err)
	}

	var spans []RefSpan
	unqualified := false
	var walk func(node any)
	walk = func(node any) {
		switch v := node.(type) {
		case map[string]any:
			if colRef, ok := v["ColumnRef"]; ok {
				if ref, ok := columnRefSpan(colRef); ok {
					spans = append(spans, ref)
				} else {
					unqualified = true
				}
			}
			for _, child := range v {
				walk(child)
			}
		case []any:
			for _, child := range v {
				walk(child)
			}
		}
	}
	walk(doc)
	if unqualified {
		return nil, fmt.Errorf("metricexpr: %q contains a column reference not written as table.column", expr)
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].Start < spans[j].Start })

	// The parser reports offsets into "SELECT <expr>"; rebase them onto expr.
	prefixLen := len(wrapped) - len(expr)
	out := make([]RefSpan, 0, len(spans))
	for _, s := range spans {
		s.Start -= prefixLen
		s.End -= prefixLen
		if s.Start < 0 || s.End > len(expr) {
			return nil, fmt.Errorf("metricexpr: reference %s.%s fell outside expression bounds", s.Table, s.Column)
		}
		out = append(out, s)
	}
	return out, nil
}

// columnRefSpan extracts the (table, column, location) triple from a
// libpg_query "ColumnRef" node rendered as generic JSON. A qualified
// reference has two "String" fields ([table, column]); a bare column
// name has one and is rejected by the caller's Parse contract.
func columnRefSpan(node any) (RefSpan, bool) {
	obj, ok := node.(map[string]any)
	if !ok {
		return RefSpan{}, false
	}

	fieldsAny, ok := obj["fields"]
	if !ok {
		return RefSpan{}, false
	}
	fields, ok := fieldsAny.([]any)
	if !ok || len(fields) != 2 {
		return RefSpan{}, false
	}

	table, ok := stringNodeValue(fields[0])
	if !ok {
		return RefSpan{}, false
	}
	column, ok := stringNodeValue(fields[1])
	if !ok {
		return RefSpan{}, false
	}

	loc := 0
	if l, ok := obj["location"]; ok {
		if f, ok := l.(float64); ok {
			loc = int(f)
		}
	}

	// location points at the start of the qualified reference;
	// "table.column" spans exactly len(table)+1+len(column) bytes.
	span := len(table) + 1 + len(column)
	return RefSpan{Table: table, Column: column, Start: loc, End: loc + span}, true
}

func stringNodeValue(node any) (string, bool) {
	obj, ok := node.(map[string]any)
	if !ok {
		return "", false
	}
	strNode, ok := obj["String"]
	if !ok {
		return "", false
	}
	strObj, ok := strNode.(map[string]any)
	if !ok {
		return "", false
	}
	s, ok := strObj["str"].(string)
	return s, ok
}

// Rewrite substitutes each ref's "table.column" span in expr with
// aliasFor(ref.Table)+"."+ref.Column, processing right-to-left so
// earlier spans' offsets stay valid as later ones are replaced.
func Rewrite(expr string, refs []RefSpan, aliasFor func(table string) string) string {
	out := []byte(expr)
	ordered := append([]RefSpan(nil), refs...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Start > ordered[j].Start })

	for _, ref := range ordered {
		replacement := fmt.Sprintf("%s.%s", aliasFor(ref.Table), ref.Column)
		out = append(out[:ref.Start], append([]byte(replacement), out[ref.End:]...)...)
	}
	return string(out)
}
