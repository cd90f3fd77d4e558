package builder

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrIllegalIdentifier 表名/列名/索引名 等不符合 ^[A-Za-z_][A-Za-z0-9_]*$
	ErrIllegalIdentifier = errors.New("illegal identifier")
	// ErrUnsupportedOperation 当前方言不支持的操作
	ErrUnsupportedOperation = errors.New("unsupported operation")
	// ErrParameterMismatch 占位符数量与参数数量不一致
	ErrParameterMismatch = errors.New("parameter count mismatch")
	// ErrUpsertNoKeys SQLite/PostgreSQL 的 upsert 没有冲突键
	ErrUpsertNoKeys = errors.New("upsert requires at least one primary key")
	// ErrEmptyValues IN 列表、AND/OR、SET 等为空
	ErrEmptyValues = errors.New("empty value list")
	// ErrIllegalArgument 缺少表名、条件等必要参数
	ErrIllegalArgument = errors.New("illegal argument")
)

// UnsupportedError 记录是哪个方言不支持哪个功能
type UnsupportedError struct {
	Dialect Dialect
	Feature string
	Message string // 不为空时直接作为错误信息
}

func (e *UnsupportedError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s does not support %s", e.Dialect, e.Feature)
}

func (e *UnsupportedError) Is(target error) bool {
	return target == ErrUnsupportedOperation
}

func unsupported(d Dialect, feature string) error {
	return errors.WithStack(&UnsupportedError{Dialect: d, Feature: feature})
}

func illegalIdentifier(name string) error {
	return errors.Wrapf(ErrIllegalIdentifier, "%q", name)
}

func illegalArgument(format string, args ...any) error {
	return errors.Wrapf(ErrIllegalArgument, format, args...)
}
