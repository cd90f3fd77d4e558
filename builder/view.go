package builder

import (
	"bytes"
	"strings"
)

// CreateViewBuilder CREATE [OR REPLACE] VIEW [IF NOT EXISTS] name AS query
// OR REPLACE 在 SQLite 上直接报错; IF NOT EXISTS 只在 PostgreSQL 上输出
type CreateViewBuilder struct {
	errs
	name        string
	raw         string
	query       *SelectBuilder
	orReplace   bool
	ifNotExists bool
}

func CreateView(name string) *CreateViewBuilder {
	b := &CreateViewBuilder{name: name}
	b.add(checkIdentifier(name))
	return b
}

// As 原样使用的查询语句
func (b *CreateViewBuilder) As(query string) *CreateViewBuilder {
	b.raw = query
	b.query = nil
	return b
}

// AsSelect 使用 SelectBuilder 作为视图定义, 查询中不能有参数
func (b *CreateViewBuilder) AsSelect(query *SelectBuilder) *CreateViewBuilder {
	b.query = query
	b.raw = ""
	return b
}

func (b *CreateViewBuilder) OrReplace() *CreateViewBuilder {
	b.orReplace = true
	return b
}

func (b *CreateViewBuilder) IfNotExists() *CreateViewBuilder {
	b.ifNotExists = true
	return b
}

func (b *CreateViewBuilder) Render(d Dialect) (string, []any, error) {
	if _, err := d.profile(); err != nil {
		return "", nil, err
	}
	if b.err != nil {
		return "", nil, b.err
	}
	query := strings.TrimSpace(b.raw)
	if b.query != nil {
		q, args, err := b.query.Render(d)
		if err != nil {
			return "", nil, err
		}
		if len(args) > 0 {
			return "", nil, illegalArgument("view %s query cannot have bound parameters", b.name)
		}
		query = q
	}
	if query == "" {
		return "", nil, illegalArgument("view %s has no query", b.name)
	}
	if d.CountPlaceholders(query) > 0 {
		return "", nil, illegalArgument("view %s query cannot have bound parameters", b.name)
	}

	var bf bytes.Buffer
	bf.WriteString("CREATE ")
	if b.orReplace {
		if err := d.require(FeatureViewOrReplace); err != nil {
			return "", nil, err
		}
		bf.WriteString("OR REPLACE ")
	}
	bf.WriteString("VIEW ")
	if b.ifNotExists && d.Supports(FeatureViewIfNotExists) {
		bf.WriteString("IF NOT EXISTS ")
	}
	bf.WriteString(b.name)
	bf.WriteString(" AS ")
	bf.WriteString(query)
	return bf.String(), nil, nil
}
