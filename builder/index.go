package builder

import (
	"bytes"
	"strings"

	"github.com/pkg/errors"
)

// CreateIndexBuilder CREATE [UNIQUE] INDEX [IF NOT EXISTS] name ON table (cols)
// IF NOT EXISTS 只在 SQLite/PostgreSQL 输出, MySQL/MariaDB 没有这个子句, 直接忽略
type CreateIndexBuilder struct {
	errs
	name        string
	table       string
	columns     []string
	unique      bool
	ifNotExists bool
}

func CreateIndex(name string) *CreateIndexBuilder {
	b := &CreateIndexBuilder{name: name}
	b.add(checkIdentifier(name))
	return b
}

func (b *CreateIndexBuilder) On(table string) *CreateIndexBuilder {
	b.add(checkIdentifier(table))
	b.table = table
	return b
}

func (b *CreateIndexBuilder) Columns(columns ...string) *CreateIndexBuilder {
	b.add(checkIdentifiers(columns...))
	b.columns = append(b.columns, columns...)
	return b
}

func (b *CreateIndexBuilder) Unique() *CreateIndexBuilder {
	b.unique = true
	return b
}

func (b *CreateIndexBuilder) IfNotExists() *CreateIndexBuilder {
	b.ifNotExists = true
	return b
}

func (b *CreateIndexBuilder) Render(d Dialect) (string, []any, error) {
	if _, err := d.profile(); err != nil {
		return "", nil, err
	}
	if b.err != nil {
		return "", nil, b.err
	}
	if b.table == "" {
		return "", nil, illegalArgument("index %s has no table", b.name)
	}
	if len(b.columns) == 0 {
		return "", nil, errors.Wrapf(ErrEmptyValues, "index %s has no columns", b.name)
	}
	var bf bytes.Buffer
	bf.WriteString("CREATE ")
	if b.unique {
		bf.WriteString("UNIQUE ")
	}
	bf.WriteString("INDEX ")
	if b.ifNotExists && d.Supports(FeatureIndexIfNotExists) {
		bf.WriteString("IF NOT EXISTS ")
	}
	bf.WriteString(b.name)
	bf.WriteString(" ON ")
	bf.WriteString(b.table)
	bf.WriteString(" (")
	bf.WriteString(strings.Join(b.columns, ", "))
	bf.WriteString(")")
	return bf.String(), nil, nil
}
