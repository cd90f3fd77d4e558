package builder

import (
	"bytes"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

type condKind int

const (
	condCompare condKind = iota
	condNull
	condIn
	condBetween
	condGroup
	condRaw
)

// Condition where 条件, 不可变
// 叶子节点: 列 + 操作符 + 参数; 组合节点: AND/OR + 子条件
type Condition struct {
	kind     condKind
	column   string
	op       string
	values   []any
	children []Condition
	raw      string
	err      error
}

// IsZero 没有设置任何条件
func (c Condition) IsZero() bool {
	return c.op == "" && c.raw == "" && c.err == nil
}

// Err 构造时产生的错误
func (c Condition) Err() error {
	return c.err
}

func compare(column, op string, value any) Condition {
	c := Condition{kind: condCompare, column: column, op: op, values: []any{value}}
	c.err = checkColumn(column, false)
	if fd, ok := value.(Fd); ok && c.err == nil {
		c.err = fd.err
	}
	return c
}

// Eq
// - column 列名, 可以带表前缀 u.id
// - value 比较的值, 传入 Fd 时表示与另一列比较
func Eq(column string, value any) Condition {
	return compare(column, "=", value)
}

// Ne 不等于 <>
func Ne(column string, value any) Condition {
	return compare(column, "<>", value)
}

func Gt(column string, value any) Condition {
	return compare(column, ">", value)
}

func Gte(column string, value any) Condition {
	return compare(column, ">=", value)
}

func Lt(column string, value any) Condition {
	return compare(column, "<", value)
}

func Lte(column string, value any) Condition {
	return compare(column, "<=", value)
}

// Like 模糊查询, 通配符需要调用方自己加: Like("name", "%ann%")
func Like(column string, pattern string) Condition {
	return compare(column, "LIKE", pattern)
}

// IsNull 不需要参数
func IsNull(column string) Condition {
	return Condition{kind: condNull, column: column, op: "IS NULL", err: checkColumn(column, false)}
}

func IsNotNull(column string) Condition {
	return Condition{kind: condNull, column: column, op: "IS NOT NULL", err: checkColumn(column, false)}
}

func in(column, op string, values []any) Condition {
	c := Condition{kind: condIn, column: column, op: op, values: append([]any(nil), values...)}
	if c.err = checkColumn(column, false); c.err != nil {
		return c
	}
	if len(values) == 0 {
		// IN () 在各个方言里含义不同, 直接拒绝
		c.err = errors.Wrapf(ErrEmptyValues, "%s %s", column, op)
	}
	return c
}

// In column IN (?, ?, ...), 空列表直接返回错误
func In(column string, values ...any) Condition {
	return in(column, "IN", values)
}

func NotIn(column string, values ...any) Condition {
	return in(column, "NOT IN", values)
}

// InSlice 直接传入切片 InSlice("id", []int64{1, 2})
func InSlice[T any](column string, values []T) Condition {
	return in(column, "IN", lo.ToAnySlice(values))
}

func NotInSlice[T any](column string, values []T) Condition {
	return in(column, "NOT IN", lo.ToAnySlice(values))
}

// Between column BETWEEN ? AND ?
func Between(column string, from, to any) Condition {
	return Condition{kind: condBetween, column: column, op: "BETWEEN", values: []any{from, to}, err: checkColumn(column, false)}
}

func group(op string, conds []Condition) Condition {
	c := Condition{kind: condGroup, op: op, children: append([]Condition(nil), conds...)}
	if len(conds) == 0 {
		c.err = errors.Wrapf(ErrEmptyValues, "%s without conditions", op)
		return c
	}
	for _, child := range conds {
		if child.err != nil {
			c.err = child.err
			break
		}
		if child.IsZero() {
			c.err = errors.Wrapf(ErrIllegalArgument, "empty condition in %s", op)
			break
		}
	}
	return c
}

// And 使用 AND 连接, 至少需要一个条件
// And(Eq("x1", 11), Gte("x2", 45)) -> (x1 = ? AND x2 >= ?)
func And(conds ...Condition) Condition {
	return group("AND", conds)
}

// Or 使用 OR 连接, 至少需要一个条件
func Or(conds ...Condition) Condition {
	return group("OR", conds)
}

// Raw 原样输出的条件, 参数个数要和 ? 一致
// Raw("NOT EXISTS (SELECT 1 FROM orders o WHERE o.user_id = u.id AND o.state = ?)", 1)
func Raw(sql string, args ...any) Condition {
	c := Condition{kind: condRaw, op: "RAW", raw: sql, values: append([]any(nil), args...)}
	if !placeholdersMatch(sql, len(args)) {
		c.err = errors.Wrapf(ErrParameterMismatch, "expected %d but got %d", CountPlaceholders(sql), len(args))
	}
	return c
}

// Render 返回带 ? 的 sql 片段和按顺序排列的参数
func (c Condition) Render() (string, []any, error) {
	if c.err != nil {
		return "", nil, c.err
	}
	if c.IsZero() {
		return "", nil, errors.Wrap(ErrIllegalArgument, "empty condition")
	}
	var (
		bf   bytes.Buffer
		args []any
	)
	c.write(&bf, &args)
	return bf.String(), args, nil
}

func (c Condition) write(bf *bytes.Buffer, args *[]any) {
	switch c.kind {
	case condCompare:
		bf.WriteString(c.column)
		bf.WriteString(" ")
		bf.WriteString(c.op)
		bf.WriteString(" ")
		if fd, ok := c.values[0].(Fd); ok {
			bf.WriteString(fd.s)
			*args = append(*args, fd.args...)
			return
		}
		bf.WriteString("?")
		*args = append(*args, c.values[0])
	case condNull:
		bf.WriteString(c.column)
		bf.WriteString(" ")
		bf.WriteString(c.op)
	case condIn:
		bf.WriteString(c.column)
		bf.WriteString(" ")
		bf.WriteString(c.op)
		bf.WriteString(" (")
		bf.WriteString(placeholders(len(c.values)))
		bf.WriteString(")")
		*args = append(*args, c.values...)
	case condBetween:
		bf.WriteString(c.column)
		bf.WriteString(" BETWEEN ? AND ?")
		*args = append(*args, c.values...)
	case condRaw:
		bf.WriteString(c.raw)
		*args = append(*args, c.values...)
	case condGroup:
		if len(c.children) == 1 {
			c.children[0].write(bf, args)
			return
		}
		bf.WriteString("(")
		for i, child := range c.children {
			if i > 0 {
				bf.WriteString(" ")
				bf.WriteString(c.op)
				bf.WriteString(" ")
			}
			child.write(bf, args)
		}
		bf.WriteString(")")
	}
}

// whereClause 多个条件之间使用 AND 连接
func whereClause(conds []Condition) (string, []any, error) {
	if len(conds) == 0 {
		return "", nil, nil
	}
	var (
		bf   bytes.Buffer
		args []any
	)
	bf.WriteString(" WHERE ")
	for i, c := range conds {
		if c.err != nil {
			return "", nil, c.err
		}
		if c.IsZero() {
			return "", nil, errors.Wrap(ErrIllegalArgument, "empty condition")
		}
		if i > 0 {
			bf.WriteString(" AND ")
		}
		c.write(&bf, &args)
	}
	return bf.String(), args, nil
}
