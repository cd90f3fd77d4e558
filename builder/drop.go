package builder

import (
	"bytes"
)

type dropKind string

const (
	dropTable dropKind = "TABLE"
	dropIndex dropKind = "INDEX"
	dropView  dropKind = "VIEW"
)

// DropBuilder DROP TABLE|INDEX|VIEW [IF EXISTS] name [ON table]
type DropBuilder struct {
	errs
	kind     dropKind
	name     string
	table    string
	ifExists bool
}

func drop(kind dropKind, name string) *DropBuilder {
	b := &DropBuilder{kind: kind, name: name}
	b.add(checkIdentifier(name))
	return b
}

func DropTable(name string) *DropBuilder {
	return drop(dropTable, name)
}

func DropIndex(name string) *DropBuilder {
	return drop(dropIndex, name)
}

func DropView(name string) *DropBuilder {
	return drop(dropView, name)
}

func (b *DropBuilder) IfExists() *DropBuilder {
	b.ifExists = true
	return b
}

// On 索引所属的表, MySQL/MariaDB 必须提供, 其他方言忽略
func (b *DropBuilder) On(table string) *DropBuilder {
	b.add(checkIdentifier(table))
	b.table = table
	return b
}

func (b *DropBuilder) Render(d Dialect) (string, []any, error) {
	if _, err := d.profile(); err != nil {
		return "", nil, err
	}
	if b.err != nil {
		return "", nil, b.err
	}
	var bf bytes.Buffer
	bf.WriteString("DROP ")
	bf.WriteString(string(b.kind))
	bf.WriteString(" ")
	if b.ifExists && (b.kind != dropIndex || d.Supports(FeatureDropIndexIfExists)) {
		bf.WriteString("IF EXISTS ")
	}
	bf.WriteString(b.name)
	if b.kind == dropIndex && d.Supports(FeatureDropIndexOnTable) {
		if b.table == "" {
			return "", nil, illegalArgument("%s DROP INDEX %s requires the owning table", d, b.name)
		}
		bf.WriteString(" ON ")
		bf.WriteString(b.table)
	}
	return bf.String(), nil, nil
}
