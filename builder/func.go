package builder

import (
	"strings"
)

// function 参数可以是列名(string) 或 Fd
func function(name string, params ...any) Fd {
	f := Fd{}
	parts := make([]string, 0, len(params))
	for _, p := range params {
		fd := toField(p)
		if fd.err != nil && f.err == nil {
			f.err = fd.err
		}
		parts = append(parts, fd.s)
		f.args = append(f.args, fd.args...)
	}
	f.s = name + "(" + strings.Join(parts, ", ") + ")"
	return f
}

// Count COUNT(field), Count("*") -> COUNT(*)
func Count(field any) Fd {
	return function("COUNT", field)
}

// Sum
// field 字段名
func Sum(field any) Fd {
	return function("SUM", field)
}

func Avg(field any) Fd {
	return function("AVG", field)
}

func Min(field any) Fd {
	return function("MIN", field)
}

func Max(field any) Fd {
	return function("MAX", field)
}

// Distinct DISTINCT(field)
func Distinct(field any) Fd {
	return function("DISTINCT", field)
}

// Coalesce COALESCE(field, ?), 四种方言都支持, 代替 IFNULL
func Coalesce(field any, fallback any) Fd {
	f := function("COALESCE", field)
	f.s = strings.TrimSuffix(f.s, ")") + ", ?)"
	f.args = append(f.args, fallback)
	return f
}

// Count 方法形式: Col("id").Count()
func (f Fd) Count() Fd {
	return Count(f)
}

func (f Fd) Sum() Fd {
	return Sum(f)
}

func (f Fd) Max() Fd {
	return Max(f)
}

func (f Fd) Min() Fd {
	return Min(f)
}
