package builder

import (
	"bytes"
	"strings"

	"github.com/samber/lo"
)

// Column 列定义, CREATE TABLE 和 ALTER TABLE 共用
type Column struct {
	Name          string
	Type          string
	NotNull       bool
	Default       string // 原样输出的默认值字面量, 例如 0 / 'none' / CURRENT_TIMESTAMP
	DropDefault   bool   // 只用于 PostgreSQL 的 MODIFY: ALTER COLUMN c DROP DEFAULT
	PrimaryKey    bool
	AutoIncrement bool
	Unique        bool
	First         bool   // MySQL/MariaDB: FIRST
	After         string // MySQL/MariaDB: AFTER col
}

func (c Column) validate() error {
	if err := checkIdentifier(c.Name); err != nil {
		return err
	}
	if strings.ContainsAny(c.Default, ";") || strings.Contains(c.Default, "--") {
		return illegalArgument("default value %q", c.Default)
	}
	if c.After != "" {
		return checkIdentifier(c.After)
	}
	return nil
}

func (c Column) positioned() bool {
	return c.First || c.After != ""
}

// ForeignKey FOREIGN KEY (cols) REFERENCES ref(refCols)
type ForeignKey struct {
	Name       string // 约束名, 可选
	Columns    []string
	RefTable   string
	RefColumns []string
	OnDelete   string // CASCADE / SET NULL / RESTRICT / NO ACTION / SET DEFAULT
	OnUpdate   string
}

var referentialActions = []string{"CASCADE", "SET NULL", "RESTRICT", "NO ACTION", "SET DEFAULT"}

func (fk ForeignKey) validate() error {
	if len(fk.Columns) == 0 || len(fk.RefColumns) == 0 || fk.RefTable == "" {
		return illegalArgument("foreign key requires columns and a referenced table")
	}
	if len(fk.Columns) != len(fk.RefColumns) {
		return illegalArgument("foreign key has %d columns but references %d", len(fk.Columns), len(fk.RefColumns))
	}
	if fk.Name != "" {
		if err := checkIdentifier(fk.Name); err != nil {
			return err
		}
	}
	if err := checkIdentifiers(append(append([]string{fk.RefTable}, fk.Columns...), fk.RefColumns...)...); err != nil {
		return err
	}
	for _, a := range []string{fk.OnDelete, fk.OnUpdate} {
		if a != "" && !lo.Contains(referentialActions, strings.ToUpper(a)) {
			return illegalArgument("referential action %q", a)
		}
	}
	return nil
}

func (fk ForeignKey) String() string {
	var bf bytes.Buffer
	if fk.Name != "" {
		bf.WriteString("CONSTRAINT ")
		bf.WriteString(fk.Name)
		bf.WriteString(" ")
	}
	bf.WriteString("FOREIGN KEY (")
	bf.WriteString(strings.Join(fk.Columns, ", "))
	bf.WriteString(") REFERENCES ")
	bf.WriteString(fk.RefTable)
	bf.WriteString("(")
	bf.WriteString(strings.Join(fk.RefColumns, ", "))
	bf.WriteString(")")
	if fk.OnDelete != "" {
		bf.WriteString(" ON DELETE ")
		bf.WriteString(strings.ToUpper(fk.OnDelete))
	}
	if fk.OnUpdate != "" {
		bf.WriteString(" ON UPDATE ")
		bf.WriteString(strings.ToUpper(fk.OnUpdate))
	}
	return bf.String()
}

// writeColumnTail NOT NULL / DEFAULT
func writeColumnTail(bf *bytes.Buffer, c Column) {
	if c.NotNull {
		bf.WriteString(" NOT NULL")
	}
	if c.Default != "" {
		bf.WriteString(" DEFAULT ")
		bf.WriteString(c.Default)
	}
}

// writePosition FIRST / AFTER col, 调用前需要确认方言支持
func writePosition(bf *bytes.Buffer, c Column) {
	if c.First {
		bf.WriteString(" FIRST")
	} else if c.After != "" {
		bf.WriteString(" AFTER ")
		bf.WriteString(c.After)
	}
}
