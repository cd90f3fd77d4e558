package mapper

import (
	"database/sql"
	"reflect"

	"github.com/pkg/errors"
)

// Cursor *sql.Rows 和 *sqlx.Rows 都满足
type Cursor interface {
	Columns() ([]string, error)
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func structPointer(dest any) (reflect.Value, error) {
	rv := reflect.ValueOf(dest)
	if !rv.IsValid() || rv.Kind() != reflect.Pointer || rv.IsNil() {
		return reflect.Value{}, &MappingError{Type: reflect.TypeOf(dest), Err: errors.WithMessage(ErrCannotInstantiate, "destination must be a non-nil pointer")}
	}
	if rv.Elem().Kind() != reflect.Struct {
		return reflect.Value{}, &MappingError{Type: rv.Type(), Err: errors.WithMessage(ErrCannotInstantiate, "destination must point to a struct")}
	}
	return rv.Elem(), nil
}

// settable 按下标取字段, 路径上 nil 的嵌入指针先分配
func settable(v reflect.Value, index []int) reflect.Value {
	for i, x := range index {
		if i > 0 && v.Kind() == reflect.Pointer {
			if v.IsNil() {
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	return v
}

// FromRow 按列名写入 dest, 结果集中没有的字段保持原值, 不认识的列忽略
func (m *Mapper) FromRow(columns []string, values []any, dest any) error {
	if len(columns) != len(values) {
		return errors.Errorf("%d columns but %d values", len(columns), len(values))
	}
	rv, err := structPointer(dest)
	if err != nil {
		return err
	}
	meta, err := m.MetaFor(rv.Type())
	if err != nil {
		return err
	}
	for i, col := range columns {
		f, ok := meta.Field(col)
		if !ok {
			continue
		}
		if err := m.registry.Assign(settable(rv, f.Index), values[i]); err != nil {
			return &MappingError{Type: meta.Type, Field: f.Name, Err: err}
		}
	}
	return nil
}

// ScanRow 读取当前行, 调用前需要先 Next
func (m *Mapper) ScanRow(c Cursor, dest any) error {
	columns, err := c.Columns()
	if err != nil {
		return errors.WithStack(err)
	}
	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := c.Scan(ptrs...); err != nil {
		return err
	}
	return m.FromRow(columns, values, dest)
}

// ScanOne 读取第一行, 没有数据返回 sql.ErrNoRows
func (m *Mapper) ScanOne(c Cursor, dest any) error {
	if _, err := structPointer(dest); err != nil {
		return err
	}
	if !c.Next() {
		if err := c.Err(); err != nil {
			return err
		}
		return sql.ErrNoRows
	}
	return m.ScanRow(c, dest)
}

// ScanAll dest 是 *[]T 或 *[]*T, 按行的顺序追加到清空后的切片
func (m *Mapper) ScanAll(c Cursor, dest any) error {
	sv := reflect.ValueOf(dest)
	if !sv.IsValid() || sv.Kind() != reflect.Pointer || sv.IsNil() || sv.Elem().Kind() != reflect.Slice {
		return &MappingError{Type: reflect.TypeOf(dest), Err: errors.WithMessage(ErrCannotInstantiate, "destination must be a pointer to a slice")}
	}
	sv = sv.Elem()
	elem := sv.Type().Elem()
	isPtr := elem.Kind() == reflect.Pointer
	base := elem
	if isPtr {
		base = elem.Elem()
	}
	if base.Kind() != reflect.Struct {
		return &MappingError{Type: sv.Type(), Err: errors.WithMessagef(ErrCannotInstantiate, "%s is not a struct", base)}
	}
	if _, err := m.MetaFor(base); err != nil {
		return err
	}

	out := reflect.MakeSlice(sv.Type(), 0, 0)
	for c.Next() {
		item := reflect.New(base)
		if err := m.ScanRow(c, item.Interface()); err != nil {
			return err
		}
		if isPtr {
			out = reflect.Append(out, item)
		} else {
			out = reflect.Append(out, item.Elem())
		}
	}
	if err := c.Err(); err != nil {
		return err
	}
	sv.Set(out)
	return nil
}

// One 新建一个 T 并读取第一行
func One[T any](m *Mapper, c Cursor) (*T, error) {
	v := new(T)
	if err := m.ScanOne(c, v); err != nil {
		return nil, err
	}
	return v, nil
}

func All[T any](m *Mapper, c Cursor) ([]T, error) {
	var out []T
	if err := m.ScanAll(c, &out); err != nil {
		return nil, err
	}
	return out, nil
}
