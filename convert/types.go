package convert

import (
	"database/sql/driver"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// 这些类型自带 Scan/Value/SQLType, 不需要注册 Converter

func sourceBytes(src any) ([]byte, error) {
	switch v := src.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	}
	return nil, errors.Errorf("incompatible type %T", src)
}

// Date 只保留日期部分
type Date time.Time

func (Date) SQLType() string {
	return "DATE"
}

func (d Date) Time() time.Time {
	return time.Time(d)
}

func (d Date) Value() (driver.Value, error) {
	return d.Time().Format(time.DateOnly), nil
}

func (d *Date) Scan(src any) error {
	if src == nil {
		*d = Date{}
		return nil
	}
	if t, ok := src.(time.Time); ok {
		y, m, day := t.Date()
		*d = Date(time.Date(y, m, day, 0, 0, 0, 0, t.Location()))
		return nil
	}
	source, err := sourceBytes(src)
	if err != nil {
		return errors.Wrap(err, "scan Date")
	}
	s := string(source)
	if len(s) > len(time.DateOnly) {
		s = s[:len(time.DateOnly)]
	}
	v, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return errors.WithStack(err)
	}
	*d = Date(v)
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Time().Format(time.DateOnly) + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	v, err := time.Parse(time.DateOnly, strings.Trim(string(data), `"`))
	if err != nil {
		return errors.WithStack(err)
	}
	*d = Date(v)
	return nil
}

// DateTime json 中格式化为 "2006-01-02 15:04:05"
type DateTime time.Time

func (DateTime) SQLType() string {
	return "DATETIME"
}

func (t DateTime) Time() time.Time {
	return time.Time(t)
}

func (t DateTime) Value() (driver.Value, error) {
	return t.Time(), nil
}

func (t *DateTime) Scan(src any) error {
	if src == nil {
		*t = DateTime{}
		return nil
	}
	v, err := parseTime(src)
	if err != nil {
		return errors.Wrap(err, "scan DateTime")
	}
	*t = DateTime(v)
	return nil
}

func (t DateTime) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.Time().Format(time.DateTime) + `"`), nil
}

func (t *DateTime) UnmarshalJSON(data []byte) error {
	v, err := time.Parse(time.DateTime, strings.Trim(string(data), `"`))
	if err != nil {
		return errors.WithStack(err)
	}
	*t = DateTime(v)
	return nil
}

// JSON 按 json 文本存储任意值, 例如 JSON[map[string]any], JSON[[]Item]
type JSON[T any] struct {
	Data T
}

func (JSON[T]) SQLType() string {
	return "TEXT"
}

func (j JSON[T]) Value() (driver.Value, error) {
	b, err := json.Marshal(j.Data)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return string(b), nil
}

func (j *JSON[T]) Scan(src any) error {
	var zero T
	j.Data = zero
	if src == nil {
		return nil
	}
	source, err := sourceBytes(src)
	if err != nil {
		return errors.Wrap(err, "scan JSON")
	}
	if len(source) == 0 {
		return nil
	}
	if err := json.Unmarshal(source, &j.Data); err != nil {
		return errors.Wrap(err, "scan JSON")
	}
	return nil
}

func (j JSON[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(j.Data)
}

func (j *JSON[T]) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &j.Data)
}

// NullString NULL 读成空串, 写入时空串仍然是空串
type NullString string

func (NullString) SQLType() string {
	return "TEXT"
}

func (s *NullString) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*s = ""
	case time.Time:
		*s = NullString(v.Format(time.DateTime))
	case string:
		*s = NullString(v)
	case []byte:
		*s = NullString(v)
	default:
		n, err := Default.FromStored(src, stringType)
		if err != nil {
			return err
		}
		*s = NullString(n.(string))
	}
	return nil
}

func (s NullString) String() string {
	return string(s)
}
