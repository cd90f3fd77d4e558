package convert

import (
	"database/sql"
	"database/sql/driver"
	"encoding"
	"math"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/duke-git/lancet/v2/convertor"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// ErrUnsupportedType 既不是内置类型也没有注册 Converter
var ErrUnsupportedType = errors.New("unsupported type")

var (
	timeType            = reflect.TypeOf(time.Time{})
	decimalType         = reflect.TypeOf(decimal.Decimal{})
	bytesType           = reflect.TypeOf([]byte(nil))
	stringType          = reflect.TypeOf("")
	textMarshalerType   = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
	scannerType         = reflect.TypeOf((*sql.Scanner)(nil)).Elem()
	sqlTyperType        = reflect.TypeOf((*SQLTyper)(nil)).Elem()
)

// SQLTyper 类型自己声明列类型, 例如 JSON[T] -> TEXT
type SQLTyper interface {
	SQLType() string
}

// Registry 类型 -> Converter, 同一类型后注册的覆盖先注册的
type Registry struct {
	mu         sync.RWMutex
	converters map[reflect.Type]Converter
}

func NewRegistry() *Registry {
	return &Registry{converters: make(map[reflect.Type]Converter)}
}

// Default 进程级别的注册表, 内置 uuid.UUID
var Default = func() *Registry {
	r := NewRegistry()
	r.Register(reflect.TypeOf(uuid.UUID{}), UUID)
	return r
}()

// Register 注册到 Default, 需要在第一次使用前调用
func Register(t reflect.Type, c Converter) {
	Default.Register(t, c)
}

// RegisterType 泛型形式: RegisterType[Money](convert.Default, moneyConverter)
func RegisterType[T any](r *Registry, c Converter) {
	r.Register(reflect.TypeOf((*T)(nil)).Elem(), c)
}

func (r *Registry) Register(t reflect.Type, c Converter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.converters[t] = c
}

func (r *Registry) Lookup(t reflect.Type) (Converter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.converters[t]
	return c, ok
}

func unsupportedType(t reflect.Type) error {
	return errors.Wrapf(ErrUnsupportedType, "%s", t)
}

// isEnum 命名的 string 类型, 或者可以和文本互相转换的类型
func isEnum(t reflect.Type) bool {
	if t.Kind() == reflect.String && t.PkgPath() != "" {
		return true
	}
	return t.Implements(textMarshalerType) && reflect.PointerTo(t).Implements(textUnmarshalerType)
}

// builtin 预声明类型(string, int64 ...)没有包路径
func builtin(t reflect.Type) bool {
	return t.PkgPath() == "" && t.Name() != ""
}

func isByteSeq(t reflect.Type) bool {
	return (t.Kind() == reflect.Slice || t.Kind() == reflect.Array) && t.Elem().Kind() == reflect.Uint8
}

func kindType(k reflect.Kind) (string, bool) {
	switch k {
	case reflect.String:
		return "TEXT", true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Uint8, reflect.Uint16:
		return "INTEGER", true
	case reflect.Int64, reflect.Uint, reflect.Uint32, reflect.Uint64:
		return "BIGINT", true
	case reflect.Bool:
		return "BOOLEAN", true
	case reflect.Float64:
		return "DOUBLE", true
	case reflect.Float32:
		return "FLOAT", true
	}
	return "", false
}

// SQLTypeFor 建表时的列类型
// 顺序: 时间/decimal/[]byte -> 预声明类型 -> 注册的 Converter -> SQLTyper -> 枚举 -> 底层类型
func (r *Registry) SQLTypeFor(t reflect.Type) (string, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t {
	case timeType:
		return "DATETIME", nil
	case decimalType:
		return "DECIMAL(18,6)", nil
	case bytesType:
		return "BLOB", nil
	}
	if builtin(t) {
		if s, ok := kindType(t.Kind()); ok {
			return s, nil
		}
	}
	if t.Name() == "" && isByteSeq(t) {
		return "BLOB", nil
	}
	if c, ok := r.Lookup(t); ok {
		return c.SQLType(), nil
	}
	if t.Implements(sqlTyperType) {
		return reflect.Zero(t).Interface().(SQLTyper).SQLType(), nil
	}
	if reflect.PointerTo(t).Implements(sqlTyperType) {
		return reflect.New(t).Interface().(SQLTyper).SQLType(), nil
	}
	if isEnum(t) {
		return "VARCHAR(100)", nil
	}
	if s, ok := kindType(t.Kind()); ok {
		return s, nil
	}
	if isByteSeq(t) {
		return "BLOB", nil
	}
	return "", unsupportedType(t)
}

// ToStored 程序中的值 -> 写入数据库的值, nil 和空指针写入 NULL
func (r *Registry) ToStored(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
	}
	t := rv.Type()
	v = rv.Interface()

	switch x := v.(type) {
	case time.Time:
		return x, nil
	case decimal.Decimal:
		return x.String(), nil
	case []byte:
		return x, nil
	}
	if c, ok := r.Lookup(t); ok {
		return c.ToStored(v)
	}
	if vl, ok := v.(driver.Valuer); ok {
		return vl.Value()
	}
	if rv.CanAddr() {
		if vl, ok := rv.Addr().Interface().(driver.Valuer); ok {
			return vl.Value()
		}
	}
	if isEnum(t) {
		if m, ok := v.(encoding.TextMarshaler); ok {
			b, err := m.MarshalText()
			if err != nil {
				return nil, errors.WithStack(err)
			}
			return string(b), nil
		}
		return rv.String(), nil
	}

	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return nil, errors.Errorf("value %d of %s overflows int64", u, t)
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.String:
		return rv.String(), nil
	case reflect.Slice:
		if isByteSeq(t) {
			return append([]byte(nil), rv.Bytes()...), nil
		}
	case reflect.Array:
		if isByteSeq(t) {
			b := make([]byte, rv.Len())
			reflect.Copy(reflect.ValueOf(b), rv)
			return b, nil
		}
	}
	return nil, unsupportedType(t)
}

// FromStored 数据库读出的值 -> t 类型的值
func (r *Registry) FromStored(raw any, t reflect.Type) (any, error) {
	v, err := r.fromStored(raw, t)
	if err != nil {
		return nil, err
	}
	return v.Interface(), nil
}

// Assign 转换后直接赋值给 dst (可设置的字段)
func (r *Registry) Assign(dst reflect.Value, raw any) error {
	v, err := r.fromStored(raw, dst.Type())
	if err != nil {
		return err
	}
	dst.Set(v)
	return nil
}

func (r *Registry) fromStored(raw any, t reflect.Type) (reflect.Value, error) {
	if raw == nil {
		return reflect.Zero(t), nil
	}
	if t.Kind() == reflect.Pointer {
		v, err := r.fromStored(raw, t.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		p := reflect.New(t.Elem())
		p.Elem().Set(v)
		return p, nil
	}

	switch t {
	case timeType:
		tm, err := parseTime(raw)
		return reflect.ValueOf(tm), err
	case decimalType:
		d, err := parseDecimal(raw)
		return reflect.ValueOf(d), err
	}
	if c, ok := r.Lookup(t); ok {
		out, err := c.FromStored(raw)
		if err != nil {
			return reflect.Value{}, errors.WithStack(err)
		}
		return fit(reflect.ValueOf(out), t)
	}
	if reflect.PointerTo(t).Implements(scannerType) {
		p := reflect.New(t)
		if err := p.Interface().(sql.Scanner).Scan(raw); err != nil {
			return reflect.Value{}, errors.WithStack(err)
		}
		return p.Elem(), nil
	}
	if t.Kind() != reflect.String && isEnum(t) {
		p := reflect.New(t)
		if err := p.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(convertor.ToString(normalize(raw)))); err != nil {
			return reflect.Value{}, errors.WithStack(err)
		}
		return p.Elem(), nil
	}

	out := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.String:
		out.SetString(convertor.ToString(normalize(raw)))
	case reflect.Bool:
		b, err := toBool(raw)
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := toInt(raw)
		if err != nil {
			return reflect.Value{}, errors.Wrapf(err, "convert %v to %s", raw, t)
		}
		if out.OverflowInt(n) {
			return reflect.Value{}, errors.Errorf("value %d overflows %s", n, t)
		}
		out.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := toUint(raw)
		if err != nil {
			return reflect.Value{}, errors.Wrapf(err, "convert %v to %s", raw, t)
		}
		if out.OverflowUint(n) {
			return reflect.Value{}, errors.Errorf("value %d overflows %s", n, t)
		}
		out.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := convertor.ToFloat(normalize(raw))
		if err != nil {
			return reflect.Value{}, errors.Wrapf(err, "convert %v to %s", raw, t)
		}
		if out.OverflowFloat(f) {
			return reflect.Value{}, errors.Errorf("value %v overflows %s", f, t)
		}
		out.SetFloat(f)
	case reflect.Slice, reflect.Array:
		if !isByteSeq(t) {
			return reflect.Value{}, unsupportedType(t)
		}
		b, err := toBytes(raw)
		if err != nil {
			return reflect.Value{}, err
		}
		if t.Kind() == reflect.Slice {
			out.SetBytes(b)
			break
		}
		if len(b) != t.Len() {
			return reflect.Value{}, errors.Errorf("%d bytes cannot fill %s", len(b), t)
		}
		reflect.Copy(out, reflect.ValueOf(b))
	default:
		return reflect.Value{}, unsupportedType(t)
	}
	return out, nil
}

// fit Converter 返回的值需要是目标类型, 可以转换的做一次转换
func fit(v reflect.Value, t reflect.Type) (reflect.Value, error) {
	if !v.IsValid() {
		return reflect.Zero(t), nil
	}
	if v.Type() == t {
		return v, nil
	}
	if v.Type().ConvertibleTo(t) {
		return v.Convert(t), nil
	}
	return reflect.Value{}, errors.Errorf("converter returned %s, want %s", v.Type(), t)
}

func normalize(raw any) any {
	if b, ok := raw.([]byte); ok {
		return string(b)
	}
	return raw
}

// toInt 文本只按十进制解析, 浮点数必须是整数值
func toInt(raw any) (int64, error) {
	switch v := normalize(raw).(type) {
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return n, errors.WithStack(err)
	case float64:
		if v != math.Trunc(v) || v < math.MinInt64 || v >= math.MaxInt64 {
			return 0, errors.Errorf("%v is not an integer", v)
		}
		return int64(v), nil
	case float32:
		return toInt(float64(v))
	}
	return convertor.ToInt(raw)
}

func toUint(raw any) (uint64, error) {
	switch v := normalize(raw).(type) {
	case string:
		n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		return n, errors.WithStack(err)
	case uint64:
		return v, nil
	case float64:
		if v != math.Trunc(v) || v < 0 || v >= math.MaxUint64 {
			return 0, errors.Errorf("%v is not an unsigned integer", v)
		}
		return uint64(v), nil
	case float32:
		return toUint(float64(v))
	}
	n, err := convertor.ToInt(raw)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errors.Errorf("%d is negative", n)
	}
	return uint64(n), nil
}

func toBool(raw any) (bool, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case int64:
		return v != 0, nil
	case float64:
		return v != 0, nil
	case string:
		return convertor.ToBool(v)
	case []byte:
		return convertor.ToBool(string(v))
	}
	n, err := convertor.ToInt(raw)
	if err != nil {
		return false, errors.Errorf("cannot convert %T to bool", raw)
	}
	return n != 0, nil
}

func toBytes(raw any) ([]byte, error) {
	switch v := raw.(type) {
	case []byte:
		return append([]byte(nil), v...), nil
	case string:
		return []byte(v), nil
	}
	return nil, errors.Errorf("cannot convert %T to bytes", raw)
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	time.DateOnly,
}

func parseTime(raw any) (time.Time, error) {
	switch v := raw.(type) {
	case time.Time:
		return v, nil
	case int64:
		return time.Unix(v, 0), nil
	case string, []byte:
		s := convertor.ToString(normalize(v))
		for _, layout := range timeLayouts {
			if tm, err := time.Parse(layout, s); err == nil {
				return tm, nil
			}
		}
		return time.Time{}, errors.Errorf("cannot parse %q as time", s)
	}
	return time.Time{}, errors.Errorf("cannot convert %T to time.Time", raw)
}

func parseDecimal(raw any) (decimal.Decimal, error) {
	switch v := raw.(type) {
	case decimal.Decimal:
		return v, nil
	case string:
		d, err := decimal.NewFromString(v)
		return d, errors.WithStack(err)
	case []byte:
		d, err := decimal.NewFromString(string(v))
		return d, errors.WithStack(err)
	case float64:
		return decimal.NewFromFloat(v), nil
	case float32:
		return decimal.NewFromFloat(float64(v)), nil
	case int64:
		return decimal.New(v, 0), nil
	}
	return decimal.Decimal{}, errors.Errorf("cannot convert %T to decimal", raw)
}
