package emit

import (
	"strconv"

	"github.com/nl2sqlc/nl2sqlc/compileerr"
	"github.com/nl2sqlc/nl2sqlc/dialect"
	"github.com/nl2sqlc/nl2sqlc/ir"
)

// renderPagination renders the dialect-appropriate pagination clause.
// Standard, Postgres, MySQL, and SQLite all accept "LIMIT n OFFSET m";
// SQL Server instead requires "OFFSET m ROWS FETCH NEXT n ROWS ONLY",
// which in turn requires a preceding ORDER BY — Emit guarantees one is
// present (synthesizing it if necessary) before this is called.
func renderPagination(query *ir.NL2SQL_IR, d dialect.Dialect) (string, *compileerr.Error) {
	if query.Limit == nil && query.Offset == nil {
		return "", nil
	}

	if d.UsesStandardPagination() {
		var out string
		if query.Limit != nil {
			out = "LIMIT " + strconv.Itoa(*query.Limit)
		}
		if query.Offset != nil {
			if out != "" {
				out += " "
			}
			out += "OFFSET " + strconv.Itoa(*query.Offset)
		}
		return out, nil
	}

	offset := 0
	if query.Offset != nil {
		offset = *query.Offset
	}
	out := "OFFSET " + strconv.Itoa(offset) + " ROWS"
	if query.Limit != nil {
		out += " FETCH NEXT " + strconv.Itoa(*query.Limit) + " ROWS ONLY"
	}
	return out, nil
}
