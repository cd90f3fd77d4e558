package builder

import (
	"github.com/pkg/errors"
)

// SetExpression 表示 UPDATE 语句中 SET 子句右侧的自定义表达式。
// 例如：Update("account").SetExpr("amount", SetExpr("amount - ?", 2)) -> amount = amount - ?
type SetExpression struct {
	expr string
	args []any
	err  error
}

// SetExpr 创建一个 SetExpression, args 的数量必须和 expr 中的 ? 一致
func SetExpr(expr string, args ...any) SetExpression {
	s := SetExpression{expr: expr, args: append([]any(nil), args...)}
	if !placeholdersMatch(expr, len(args)) {
		s.err = errors.Wrapf(ErrParameterMismatch, "set expression %q: expected %d but got %d", expr, CountPlaceholders(expr), len(args))
	}
	return s
}

func (s SetExpression) Render() (string, []any, error) {
	return s.expr, s.args, s.err
}

// RawStatement 原样执行的 sql, 例如 Client.Execute(ctx, RawSQL("VACUUM"))
type RawStatement struct {
	query string
	args  []any
}

// RawSQL sql 中用 ? 作为占位符, PostgreSQL 会在 Build 时转换为 $n
func RawSQL(query string, args ...any) RawStatement {
	return RawStatement{query: query, args: append([]any(nil), args...)}
}

func (r RawStatement) Render(Dialect) (string, []any, error) {
	if r.query == "" {
		return "", nil, illegalArgument("empty sql")
	}
	return r.query, r.args, nil
}
