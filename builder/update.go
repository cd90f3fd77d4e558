package builder

import (
	"bytes"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

type setItem struct {
	column string
	value  any
	expr   *SetExpression
}

// UpdateBuilder UPDATE t SET a = ?, b = b + ? WHERE ...
// 不带条件也可以渲染, 是否允许全表更新由调用方决定
type UpdateBuilder struct {
	errs
	table string
	sets  []setItem
	where []Condition
}

func Update(table string) *UpdateBuilder {
	b := &UpdateBuilder{table: table}
	b.add(checkIdentifier(table))
	return b
}

// Set 按调用顺序生成 SET 子句, 同一列重复设置时覆盖
func (b *UpdateBuilder) Set(column string, value any) *UpdateBuilder {
	return b.set(setItem{column: column, value: value})
}

// SetExpr SET 右侧使用表达式: SetExpr("amount", SetExpr("amount - ?", 2))
func (b *UpdateBuilder) SetExpr(column string, expr SetExpression) *UpdateBuilder {
	b.add(expr.err)
	return b.set(setItem{column: column, expr: &expr})
}

func (b *UpdateBuilder) set(item setItem) *UpdateBuilder {
	b.add(checkIdentifier(item.column))
	if _, i, ok := lo.FindIndexOf(b.sets, func(s setItem) bool { return s.column == item.column }); ok {
		b.sets[i] = item
		return b
	}
	b.sets = append(b.sets, item)
	return b
}

func (b *UpdateBuilder) Where(conds ...Condition) *UpdateBuilder {
	b.where = append(b.where, conds...)
	return b
}

func (b *UpdateBuilder) Render(d Dialect) (string, []any, error) {
	if _, err := d.profile(); err != nil {
		return "", nil, err
	}
	if b.err != nil {
		return "", nil, b.err
	}
	if len(b.sets) == 0 {
		return "", nil, errors.Wrapf(ErrEmptyValues, "update %s without SET", b.table)
	}
	var (
		bf   bytes.Buffer
		args []any
	)
	bf.WriteString("UPDATE ")
	bf.WriteString(b.table)
	bf.WriteString(" SET ")
	for i, s := range b.sets {
		if i > 0 {
			bf.WriteString(", ")
		}
		bf.WriteString(s.column)
		bf.WriteString(" = ")
		if s.expr != nil {
			e, a, err := s.expr.Render()
			if err != nil {
				return "", nil, err
			}
			bf.WriteString(e)
			args = append(args, a...)
			continue
		}
		bf.WriteString("?")
		args = append(args, s.value)
	}
	where, a, err := whereClause(b.where)
	if err != nil {
		return "", nil, err
	}
	bf.WriteString(where)
	args = append(args, a...)
	return bf.String(), args, nil
}
