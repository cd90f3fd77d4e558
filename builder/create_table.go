package builder

import (
	"bytes"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// CreateTableBuilder CREATE TABLE [IF NOT EXISTS] t (...)
//
//	CreateTable("users").IfNotExists().
//		Column(Column{Name: "id", Type: "INTEGER", PrimaryKey: true, AutoIncrement: true}).
//		Column(Column{Name: "name", Type: "TEXT", NotNull: true})
type CreateTableBuilder struct {
	errs
	table       string
	ifNotExists bool
	columns     []Column
	foreignKeys []ForeignKey
}

func CreateTable(table string) *CreateTableBuilder {
	b := &CreateTableBuilder{table: table}
	b.add(checkIdentifier(table))
	return b
}

func (b *CreateTableBuilder) IfNotExists() *CreateTableBuilder {
	b.ifNotExists = true
	return b
}

func (b *CreateTableBuilder) Column(c Column) *CreateTableBuilder {
	b.add(c.validate())
	if strings.TrimSpace(c.Type) == "" {
		b.add(illegalArgument("column %s has no type", c.Name))
	}
	if lo.ContainsBy(b.columns, func(o Column) bool { return strings.EqualFold(o.Name, c.Name) }) {
		b.add(illegalArgument("duplicate column %s", c.Name))
	}
	b.columns = append(b.columns, c)
	return b
}

func (b *CreateTableBuilder) ForeignKey(fk ForeignKey) *CreateTableBuilder {
	b.add(fk.validate())
	b.foreignKeys = append(b.foreignKeys, fk)
	return b
}

func (b *CreateTableBuilder) Render(d Dialect) (string, []any, error) {
	p, err := d.profile()
	if err != nil {
		return "", nil, err
	}
	if b.err != nil {
		return "", nil, b.err
	}
	if len(b.columns) == 0 {
		return "", nil, errors.Wrapf(ErrEmptyValues, "create table %s without columns", b.table)
	}
	autos := lo.Filter(b.columns, func(c Column, _ int) bool { return c.AutoIncrement })
	if len(autos) > 1 {
		return "", nil, illegalArgument("table %s has more than one auto-increment column", b.table)
	}
	pks := lo.FilterMap(b.columns, func(c Column, _ int) (string, bool) { return c.Name, c.PrimaryKey })

	inlinePK := false
	defs := make([]string, 0, len(b.columns)+len(b.foreignKeys)+1)
	for _, c := range b.columns {
		var bf bytes.Buffer
		bf.WriteString(c.Name)
		bf.WriteString(" ")
		if !c.AutoIncrement {
			bf.WriteString(d.ColumnType(c.Type))
			writeColumnTail(&bf, c)
			if c.Unique {
				bf.WriteString(" UNIQUE")
			}
			defs = append(defs, bf.String())
			continue
		}
		if c.Default != "" {
			return "", nil, illegalArgument("auto-increment column %s cannot have a default", c.Name)
		}
		switch p.autoIncrement {
		case autoIncrementInline:
			// SQLite 只允许 INTEGER PRIMARY KEY AUTOINCREMENT
			if !c.PrimaryKey || len(pks) != 1 {
				return "", nil, unsupported(d, "AUTOINCREMENT on a column that is not the only primary key")
			}
			bf.WriteString("INTEGER PRIMARY KEY AUTOINCREMENT")
			inlinePK = true
		case autoIncrementKeyword:
			bf.WriteString(d.ColumnType(c.Type))
			bf.WriteString(" NOT NULL AUTO_INCREMENT")
		case autoIncrementIdentity:
			bf.WriteString(identityType(c.Type))
		}
		if c.Unique {
			bf.WriteString(" UNIQUE")
		}
		defs = append(defs, bf.String())
	}
	if len(pks) > 0 && !inlinePK {
		defs = append(defs, "PRIMARY KEY ("+strings.Join(pks, ", ")+")")
	}
	for _, fk := range b.foreignKeys {
		defs = append(defs, fk.String())
	}

	var bf bytes.Buffer
	bf.WriteString("CREATE TABLE ")
	if b.ifNotExists {
		bf.WriteString("IF NOT EXISTS ")
	}
	bf.WriteString(b.table)
	bf.WriteString(" (")
	bf.WriteString(strings.Join(defs, ", "))
	bf.WriteString(")")
	return bf.String(), nil, nil
}

// identityType PostgreSQL 自增列: 整数类型使用 SERIAL 系列, 其他使用 IDENTITY
func identityType(sqlType string) string {
	switch strings.ToUpper(strings.TrimSpace(sqlType)) {
	case "INTEGER", "INT", "INT4":
		return "SERIAL"
	case "BIGINT", "INT8":
		return "BIGSERIAL"
	case "SMALLINT", "INT2":
		return "SMALLSERIAL"
	}
	return PostgreSQL.ColumnType(sqlType) + " GENERATED BY DEFAULT AS IDENTITY"
}
