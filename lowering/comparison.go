package lowering

import (
	"github.com/nl2sqlc/nl2sqlc/compileerr"
	"github.com/nl2sqlc/nl2sqlc/ir"
)

// renderComparison renders "<operand> <op-specific tail>" for every
// ConditionOp, including the semantic temporal operators resolved
// against l.Clock.
func (l *Lowerer) renderComparison(operand string, op ir.ConditionOp, value ir.Value, loc string) (string, *compileerr.Error) {
	switch op {
	case ir.OpEqual:
		lit, err := l.renderLiteral(value, loc)
		if err != nil {
			return "", err
		}
		return operand + " = " + lit, nil
	case ir.OpNotEqual:
		lit, err := l.renderLiteral(value, loc)
		if err != nil {
			return "", err
		}
		return operand + " <> " + lit, nil
	case ir.OpGreaterThan:
		lit, err := l.renderLiteral(value, loc)
		if err != nil {
			return "", err
		}
		return operand + " > " + lit, nil
	case ir.OpLessThan:
		lit, err := l.renderLiteral(value, loc)
		if err != nil {
			return "", err
		}
		return operand + " < " + lit, nil
	case ir.OpGTE:
		lit, err := l.renderLiteral(value, loc)
		if err != nil {
			return "", err
		}
		return operand + " >= " + lit, nil
	case ir.OpLTE:
		lit, err := l.renderLiteral(value, loc)
		if err != nil {
			return "", err
		}
		return operand + " <= " + lit, nil

	case ir.OpIn:
		list, err := l.renderLiteralList(value, loc)
		if err != nil {
			return "", err
		}
		return operand + " IN (" + list + ")", nil
	case ir.OpNotIn:
		list, err := l.renderLiteralList(value, loc)
		if err != nil {
			return "", err
		}
		return operand + " NOT IN (" + list + ")", nil

	case ir.OpIsNull:
		return operand + " IS NULL", nil
	case ir.OpIsNotNull:
		return operand + " IS NOT NULL", nil

	case ir.OpContains:
		s, err := l.stringValue(value, loc)
		if err != nil {
			return "", err
		}
		return operand + " LIKE '%" + escapeLike(s) + "%'" + likeEscapeClause(s), nil
	case ir.OpStartsWith:
		s, err := l.stringValue(value, loc)
		if err != nil {
			return "", err
		}
		return operand + " LIKE '" + escapeLike(s) + "%'" + likeEscapeClause(s), nil
	case ir.OpEndsWith:
		s, err := l.stringValue(value, loc)
		if err != nil {
			return "", err
		}
		return operand + " LIKE '%" + escapeLike(s) + "'" + likeEscapeClause(s), nil

	case ir.OpLastMonth:
		start, end := lastMonthWindow(l.Clock.Now())
		return operand + " BETWEEN '" + formatDate(start) + "' AND '" + formatDate(end) + "'", nil
	case ir.OpThisYear:
		start, end := thisYearWindow(l.Clock.Now())
		return operand + " BETWEEN '" + formatDate(start) + "' AND '" + formatDate(end) + "'", nil
	case ir.OpLastNDays:
		n, err := l.intValue(value, loc)
		if err != nil {
			return "", err
		}
		start, end := lastNDaysWindow(l.Clock.Now(), n)
		return operand + " BETWEEN '" + formatDate(start) + "' AND '" + formatDate(end) + "'", nil
	}

	return "", compileerr.New(compileerr.UnsupportedOperator, loc+"/op", "unknown condition operator %q", op)
}
