package lowering

import (
	"strconv"
	"strings"

	"github.com/nl2sqlc/nl2sqlc/compileerr"
	"github.com/nl2sqlc/nl2sqlc/ir"
)

// renderLiteral renders a scalar IR value as a SQL literal: strings
// are single-quoted with embedded quotes doubled, numbers render via
// their natural Go formatting, and booleans render per l.Dialect.
func (l *Lowerer) renderLiteral(v ir.Value, loc string) (string, *compileerr.Error) {
	switch val := v.(type) {
	case string:
		return "'" + strings.ReplaceAll(val, "'", "''") + "'", nil
	case bool:
		return l.Dialect.BoolLiteral(val), nil
	case int:
		return strconv.Itoa(val), nil
	case int32:
		return strconv.FormatInt(int64(val), 10), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 64), nil
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64), nil
	default:
		return "", compileerr.New(compileerr.OperatorValueMismatch, loc, "value %v has an unsupported literal type %T", v, v)
	}
}

// renderLiteralList renders an IN/NOT_IN value list as comma-joined
// literals, preserving input order.
func (l *Lowerer) renderLiteralList(v ir.Value, loc string) (string, *compileerr.Error) {
	items, err := toSlice(v, loc)
	if err != nil {
		return "", err
	}
	parts := make([]string, len(items))
	for i, item := range items {
		lit, err := l.renderLiteral(item, loc)
		if err != nil {
			return "", err
		}
		parts[i] = lit
	}
	return strings.Join(parts, ", "), nil
}

func toSlice(v ir.Value, loc string) ([]ir.Value, *compileerr.Error) {
	switch s := v.(type) {
	case []any:
		return s, nil
	case []string:
		out := make([]ir.Value, len(s))
		for i, x := range s {
			out[i] = x
		}
		return out, nil
	case []int:
		out := make([]ir.Value, len(s))
		for i, x := range s {
			out[i] = x
		}
		return out, nil
	case []float64:
		out := make([]ir.Value, len(s))
		for i, x := range s {
			out[i] = x
		}
		return out, nil
	default:
		return nil, compileerr.New(compileerr.OperatorValueMismatch, loc, "expected a list value, got %T", v)
	}
}

func (l *Lowerer) stringValue(v ir.Value, loc string) (string, *compileerr.Error) {
	s, ok := v.(string)
	if !ok {
		return "", compileerr.New(compileerr.OperatorValueMismatch, loc, "expected a string value, got %T", v)
	}
	return s, nil
}

func (l *Lowerer) intValue(v ir.Value, loc string) (int, *compileerr.Error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case float32:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return 0, compileerr.New(compileerr.OperatorValueMismatch, loc, "expected a numeric window value, got %T", v)
	}
}

// escapeLike backslash-escapes LIKE metacharacters (% and _) and any
// literal backslash in s, then doubles single quotes for SQL string
// literal safety. Order matters: literal backslashes are escaped first,
// so the backslashes inserted before % and _ are not doubled again.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return strings.ReplaceAll(s, "'", "''")
}

// likeEscapeClause returns " ESCAPE '\'" when s contains a character
// escapeLike had to backslash-escape (%, _, or a literal backslash),
// or "" otherwise. Standard SQL defines no default LIKE escape
// character, so CONTAINS/STARTS_WITH/ENDS_WITH only need the clause
// when the value actually contains a metacharacter to disambiguate.
func likeEscapeClause(s string) string {
	if strings.ContainsAny(s, `%_\`) {
		return " ESCAPE '\\'"
	}
	return ""
}
