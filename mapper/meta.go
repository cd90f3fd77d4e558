package mapper

import (
	"reflect"
	"strings"
	"sync"

	"github.com/iancoleman/strcase"
	"github.com/pkg/errors"
	"github.com/preceeder/go.db.multidb/convert"
	"github.com/samber/lo"
)

const tagName = "db"

// Tabler 映射的类型通过 TableName 声明表名
type Tabler interface {
	TableName() string
}

// FieldConverters 字段级别的转换器, key 是结构体字段名
// 第一次解析该类型时注册到 Mapper 的 Registry, 之后对同类型的所有字段生效
type FieldConverters interface {
	FieldConverters() map[string]convert.Converter
}

type FieldMeta struct {
	Index         []int
	Name          string
	Column        string
	PrimaryKey    bool
	AutoIncrement bool
	NotNull       bool
	Unique        bool
	Default       string
	SQLType       string
	Type          reflect.Type
}

type Meta struct {
	Type     reflect.Type
	Table    string
	Fields   []*FieldMeta
	byColumn map[string]*FieldMeta
}

// Field 按列名查找, 不区分大小写
func (m *Meta) Field(column string) (*FieldMeta, bool) {
	f, ok := m.byColumn[strings.ToLower(column)]
	return f, ok
}

func (m *Meta) Columns() []string {
	return lo.Map(m.Fields, func(f *FieldMeta, _ int) string {
		return f.Column
	})
}

func (m *Meta) PrimaryKeys() []string {
	return lo.FilterMap(m.Fields, func(f *FieldMeta, _ int) (string, bool) {
		return f.Column, f.PrimaryKey
	})
}

type Mapper struct {
	registry *convert.Registry
	cache    sync.Map
}

func New(registry *convert.Registry) *Mapper {
	if registry == nil {
		registry = convert.Default
	}
	return &Mapper{registry: registry}
}

// Default 使用 convert.Default
var Default = New(convert.Default)

func (m *Mapper) Registry() *convert.Registry {
	return m.registry
}

// MetaOf v 可以是结构体, 结构体指针, 或者它们的切片(指针)
func (m *Mapper) MetaOf(v any) (*Meta, error) {
	if v == nil {
		return nil, errors.WithMessage(ErrCannotInstantiate, "nil value")
	}
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer || t.Kind() == reflect.Slice {
		t = t.Elem()
	}
	return m.MetaFor(t)
}

// MetaFor 解析结果按类型缓存, 并发时重复计算的结果相同, 保留先写入的
func (m *Mapper) MetaFor(t reflect.Type) (*Meta, error) {
	if cached, ok := m.cache.Load(t); ok {
		return cached.(*Meta), nil
	}
	if t.Kind() != reflect.Struct {
		return nil, &MappingError{Type: t, Err: errors.WithMessagef(ErrCannotInstantiate, "%s is not a struct", t)}
	}
	meta, err := m.build(t)
	if err != nil {
		return nil, err
	}
	actual, _ := m.cache.LoadOrStore(t, meta)
	return actual.(*Meta), nil
}

func (m *Mapper) build(t reflect.Type) (*Meta, error) {
	meta := &Meta{
		Type:     t,
		Table:    tableName(t),
		byColumn: make(map[string]*FieldMeta),
	}
	fields, err := collect(t, nil, map[reflect.Type]bool{t: true})
	if err != nil {
		return nil, &MappingError{Type: t, Err: err}
	}

	if reflect.PointerTo(t).Implements(reflect.TypeOf((*FieldConverters)(nil)).Elem()) {
		converters := reflect.New(t).Interface().(FieldConverters).FieldConverters()
		for name, c := range converters {
			f, ok := lo.Find(fields, func(f *FieldMeta) bool { return f.Name == name })
			if !ok {
				return nil, &MappingError{Type: t, Field: name, Err: errors.New("no such field for converter")}
			}
			ft := f.Type
			for ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			m.registry.Register(ft, c)
		}
	}

	for _, f := range fields {
		key := strings.ToLower(f.Column)
		if _, dup := meta.byColumn[key]; dup {
			return nil, &MappingError{Type: t, Field: f.Name, Err: errors.Errorf("duplicate column %s", f.Column)}
		}
		if f.SQLType == "" {
			f.SQLType, err = m.registry.SQLTypeFor(f.Type)
			if err != nil {
				return nil, &MappingError{Type: t, Field: f.Name, Err: err}
			}
		}
		meta.byColumn[key] = f
	}
	meta.Fields = fields
	return meta, nil
}

func tableName(t reflect.Type) string {
	if t.Implements(reflect.TypeOf((*Tabler)(nil)).Elem()) {
		return reflect.Zero(t).Interface().(Tabler).TableName()
	}
	if reflect.PointerTo(t).Implements(reflect.TypeOf((*Tabler)(nil)).Elem()) {
		return reflect.New(t).Interface().(Tabler).TableName()
	}
	return ""
}

// collect 按声明顺序收集字段, 匿名嵌入的结构体和导出的结构体指针展开
// seen 是正在展开的类型, 自引用的嵌入指针按普通字段处理
func collect(t reflect.Type, parent []int, seen map[reflect.Type]bool) ([]*FieldMeta, error) {
	var fields []*FieldMeta
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag, hasTag := sf.Tag.Lookup(tagName)
		if tag == "-" {
			continue
		}
		index := append(append([]int(nil), parent...), i)
		embedded := sf.Type
		if embedded.Kind() == reflect.Pointer && sf.IsExported() {
			embedded = embedded.Elem()
		}
		if sf.Anonymous && !hasTag && embedded.Kind() == reflect.Struct && !seen[embedded] {
			seen[embedded] = true
			sub, err := collect(embedded, index, seen)
			delete(seen, embedded)
			if err != nil {
				return nil, err
			}
			fields = append(fields, sub...)
			continue
		}
		if !sf.IsExported() {
			continue
		}
		f, err := parseTag(tag)
		if err != nil {
			return nil, errors.WithMessagef(err, "field %s", sf.Name)
		}
		f.Index = index
		f.Name = sf.Name
		f.Type = sf.Type
		if f.Column == "" {
			f.Column = strcase.ToSnake(sf.Name)
		}
		fields = append(fields, f)
	}
	return fields, nil
}

// parseTag db:"name,pk,auto,notnull,unique,default=0,type=DECIMAL(10,2)"
// type 和 default 的值里可以带逗号, 无法识别的片段拼回前一个 key=value
func parseTag(tag string) (*FieldMeta, error) {
	f := &FieldMeta{}
	if tag == "" {
		return f, nil
	}
	parts := strings.Split(tag, ",")
	f.Column = strings.TrimSpace(parts[0])

	var last *string
	for _, p := range parts[1:] {
		opt := strings.TrimSpace(p)
		key, value, isKV := strings.Cut(opt, "=")
		switch {
		case opt == "pk":
			f.PrimaryKey = true
			last = nil
		case opt == "auto":
			f.AutoIncrement = true
			last = nil
		case opt == "notnull":
			f.NotNull = true
			last = nil
		case opt == "unique":
			f.Unique = true
			last = nil
		case isKV && key == "default":
			f.Default = value
			last = &f.Default
		case isKV && key == "type":
			f.SQLType = value
			last = &f.SQLType
		case last != nil:
			*last += "," + p
		default:
			return nil, errors.Errorf("unknown tag option %q", opt)
		}
	}
	return f, nil
}
