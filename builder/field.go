package builder

import (
	"strings"
)

// Fd 列表达式, 用在 select 列表, group by, order by, 以及条件右侧的列引用
type Fd struct {
	field string // 原始列名, 函数表达式为空
	s     string
	args  []any
	err   error
}

// Col 列, 支持 u.id 以及 * / u.*
func Col(name string) Fd {
	return Fd{field: name, s: name, err: checkColumn(name, true)}
}

// Field 原始列名
func (f Fd) Field() string {
	return f.field
}

func (f Fd) String() string {
	return f.s
}

func (f Fd) Render() (string, []any, error) {
	if f.err != nil {
		return "", nil, f.err
	}
	return f.s, f.args, nil
}

// As 设置别名
func (f Fd) As(alias string) Fd {
	if f.err == nil {
		f.err = checkIdentifier(alias)
	}
	f.s = f.s + " AS " + alias
	return f
}

func (f Fd) Desc() Fd {
	f.s = f.s + " DESC"
	return f
}

func (f Fd) Asc() Fd {
	f.s = f.s + " ASC"
	return f
}

func (f Fd) Eq(value any) Condition {
	return f.compare("=", value)
}

func (f Fd) Ne(value any) Condition {
	return f.compare("<>", value)
}

func (f Fd) Gt(value any) Condition {
	return f.compare(">", value)
}

func (f Fd) Gte(value any) Condition {
	return f.compare(">=", value)
}

func (f Fd) Lt(value any) Condition {
	return f.compare("<", value)
}

func (f Fd) Lte(value any) Condition {
	return f.compare("<=", value)
}

func (f Fd) Like(pattern string) Condition {
	return f.compare("LIKE", pattern)
}

func (f Fd) IsNull() Condition {
	return IsNull(f.field)
}

func (f Fd) IsNotNull() Condition {
	return IsNotNull(f.field)
}

func (f Fd) In(values ...any) Condition {
	return In(f.field, values...)
}

func (f Fd) NotIn(values ...any) Condition {
	return NotIn(f.field, values...)
}

func (f Fd) Between(from, to any) Condition {
	return Between(f.field, from, to)
}

// compare 函数表达式(COUNT(id) > ?) 作为左侧时走 Raw
func (f Fd) compare(op string, value any) Condition {
	if f.field != "" {
		return compare(f.field, op, value)
	}
	if f.err != nil {
		return Condition{kind: condRaw, op: "RAW", err: f.err}
	}
	if fd, ok := value.(Fd); ok {
		return Raw(f.s+" "+op+" "+fd.s, append(append([]any(nil), f.args...), fd.args...)...)
	}
	return Raw(f.s+" "+op+" ?", append(append([]any(nil), f.args...), value)...)
}

// toField select 列表里接受 string / Fd
func toField(v any) Fd {
	switch fd := v.(type) {
	case Fd:
		return fd
	case string:
		return Col(strings.TrimSpace(fd))
	}
	return Fd{err: illegalArgument("unsupported column expression %T", v)}
}

func joinFields(fields []Fd) (string, []any, error) {
	parts := make([]string, 0, len(fields))
	var args []any
	for _, f := range fields {
		s, a, err := f.Render()
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, s)
		args = append(args, a...)
	}
	return strings.Join(parts, ", "), args, nil
}
