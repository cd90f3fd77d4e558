package mapper

import (
	"fmt"
	"reflect"

	"github.com/pkg/errors"
	"github.com/preceeder/go.db.multidb/convert"
)

var (
	// ErrCannotInstantiate 目标不是可写入的结构体(指针)
	ErrCannotInstantiate = errors.New("cannot instantiate")
	ErrUnsupportedType   = convert.ErrUnsupportedType
)

// MappingError 映射过程中的错误, 带上出错的类型和字段
type MappingError struct {
	Type  reflect.Type
	Field string
	Err   error
}

func (e *MappingError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("mapping %v: %v", e.Type, e.Err)
	}
	return fmt.Sprintf("mapping %v.%s: %v", e.Type, e.Field, e.Err)
}

func (e *MappingError) Unwrap() error {
	return e.Err
}
