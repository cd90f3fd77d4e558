package mapper

import (
	"reflect"

	"github.com/pkg/errors"
)

type ColumnValue struct {
	Column string
	Value  any
	Field  *FieldMeta
	// Zero 字段是零值, 写入时自增列据此跳过
	Zero bool
}

// ValuesFor 按字段顺序取出所有列的存储值
func (m *Mapper) ValuesFor(obj any) ([]ColumnValue, error) {
	rv := reflect.ValueOf(obj)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, &MappingError{Type: reflect.TypeOf(obj), Err: errors.WithMessage(ErrCannotInstantiate, "nil object")}
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, &MappingError{Type: reflect.TypeOf(obj), Err: errors.WithMessage(ErrCannotInstantiate, "object must be a struct")}
	}
	meta, err := m.MetaFor(rv.Type())
	if err != nil {
		return nil, err
	}

	values := make([]ColumnValue, 0, len(meta.Fields))
	for _, f := range meta.Fields {
		fv, err := rv.FieldByIndexErr(f.Index)
		if err != nil {
			// 嵌入的指针为 nil, 按 NULL 处理
			values = append(values, ColumnValue{Column: f.Column, Field: f, Zero: true})
			continue
		}
		stored, err := m.registry.ToStored(fv.Interface())
		if err != nil {
			return nil, &MappingError{Type: meta.Type, Field: f.Name, Err: err}
		}
		values = append(values, ColumnValue{
			Column: f.Column,
			Value:  stored,
			Field:  f,
			Zero:   fv.IsZero(),
		})
	}
	return values, nil
}
