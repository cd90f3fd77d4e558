package convert

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Converter 自定义类型与数据库存储值之间的转换
type Converter interface {
	// SQLType 建表时使用的列类型
	SQLType() string
	// ToStored 程序中的值 -> 写入数据库的值
	ToStored(v any) (any, error)
	// FromStored 数据库读出的值 -> 程序中的值, 返回值的类型必须是注册时的类型
	FromStored(raw any) (any, error)
}

// Func 用函数组装一个 Converter
type Func struct {
	Type string
	To   func(v any) (any, error)
	From func(raw any) (any, error)
}

func (f Func) SQLType() string {
	return f.Type
}

func (f Func) ToStored(v any) (any, error) {
	if f.To == nil {
		return v, nil
	}
	return f.To(v)
}

func (f Func) FromStored(raw any) (any, error) {
	if f.From == nil {
		return raw, nil
	}
	return f.From(raw)
}

// UUID uuid.UUID 按文本存储
var UUID = Func{
	Type: "TEXT",
	To: func(v any) (any, error) {
		id, ok := v.(uuid.UUID)
		if !ok {
			return nil, errors.Errorf("uuid converter: unexpected %T", v)
		}
		return id.String(), nil
	},
	From: func(raw any) (any, error) {
		switch s := raw.(type) {
		case string:
			return uuid.Parse(s)
		case []byte:
			if len(s) == 16 {
				return uuid.FromBytes(s)
			}
			return uuid.ParseBytes(s)
		case uuid.UUID:
			return s, nil
		}
		return nil, errors.Errorf("uuid converter: unexpected %T", raw)
	},
}
