package builder

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

type alterKind int

const (
	alterAddColumn alterKind = iota
	alterDropColumn
	alterModifyColumn
	alterRenameColumn
	alterAddPrimaryKey
	alterDropPrimaryKey
	alterAddForeignKey
	alterDropForeignKey
	alterAddUnique
	alterDropUnique
	alterRenameTable
)

type alterOp struct {
	kind     alterKind
	column   Column
	name     string // 列名/约束名/新表名
	newName  string
	dataType string
	columns  []string
	fk       ForeignKey
}

// AlterTableBuilder 按添加顺序保存多个操作, 渲染时每个操作一条语句, 用 "; " 连接
// 多个操作执行时需要通过 Statements 逐条执行
// 方言能力在 Render 时检查
type AlterTableBuilder struct {
	errs
	table string
	ops   []alterOp
}

func AlterTable(table string) *AlterTableBuilder {
	b := &AlterTableBuilder{table: table}
	b.add(checkIdentifier(table))
	return b
}

func (b *AlterTableBuilder) push(op alterOp, err error) *AlterTableBuilder {
	b.add(err)
	b.ops = append(b.ops, op)
	return b
}

// AddColumn ADD COLUMN name type [NOT NULL] [DEFAULT v] [FIRST|AFTER col]
func (b *AlterTableBuilder) AddColumn(c Column) *AlterTableBuilder {
	err := c.validate()
	if err == nil && strings.TrimSpace(c.Type) == "" {
		err = illegalArgument("column %s has no type", c.Name)
	}
	return b.push(alterOp{kind: alterAddColumn, column: c}, err)
}

func (b *AlterTableBuilder) DropColumn(name string) *AlterTableBuilder {
	return b.push(alterOp{kind: alterDropColumn, name: name}, checkIdentifier(name))
}

// ModifyColumn 修改列定义
// PostgreSQL 拆成 ALTER COLUMN c TYPE / SET NOT NULL / SET DEFAULT / DROP DEFAULT
func (b *AlterTableBuilder) ModifyColumn(c Column) *AlterTableBuilder {
	return b.push(alterOp{kind: alterModifyColumn, column: c}, c.validate())
}

// RenameColumn MySQL/MariaDB 使用 CHANGE COLUMN, 必须提供 dataType
func (b *AlterTableBuilder) RenameColumn(oldName, newName string, dataType ...string) *AlterTableBuilder {
	op := alterOp{kind: alterRenameColumn, name: oldName, newName: newName}
	if len(dataType) > 0 {
		op.dataType = dataType[0]
	}
	return b.push(op, checkIdentifiers(oldName, newName))
}

func (b *AlterTableBuilder) AddPrimaryKey(columns ...string) *AlterTableBuilder {
	err := checkIdentifiers(columns...)
	if err == nil && len(columns) == 0 {
		err = errors.Wrap(ErrEmptyValues, "primary key without columns")
	}
	return b.push(alterOp{kind: alterAddPrimaryKey, columns: columns}, err)
}

func (b *AlterTableBuilder) DropPrimaryKey() *AlterTableBuilder {
	return b.push(alterOp{kind: alterDropPrimaryKey}, nil)
}

func (b *AlterTableBuilder) AddForeignKey(fk ForeignKey) *AlterTableBuilder {
	return b.push(alterOp{kind: alterAddForeignKey, fk: fk}, fk.validate())
}

func (b *AlterTableBuilder) DropForeignKey(name string) *AlterTableBuilder {
	return b.push(alterOp{kind: alterDropForeignKey, name: name}, checkIdentifier(name))
}

// AddUnique ADD [CONSTRAINT name] UNIQUE (cols), name 可以为空
func (b *AlterTableBuilder) AddUnique(name string, columns ...string) *AlterTableBuilder {
	err := checkIdentifiers(columns...)
	if err == nil && name != "" {
		err = checkIdentifier(name)
	}
	if err == nil && len(columns) == 0 {
		err = errors.Wrap(ErrEmptyValues, "unique constraint without columns")
	}
	return b.push(alterOp{kind: alterAddUnique, name: name, columns: columns}, err)
}

func (b *AlterTableBuilder) DropUnique(name string) *AlterTableBuilder {
	return b.push(alterOp{kind: alterDropUnique, name: name}, checkIdentifier(name))
}

// RenameTo 重命名表
func (b *AlterTableBuilder) RenameTo(name string) *AlterTableBuilder {
	return b.push(alterOp{kind: alterRenameTable, name: name}, checkIdentifier(name))
}

func (b *AlterTableBuilder) Render(d Dialect) (string, []any, error) {
	stmts, err := b.Statements(d)
	if err != nil {
		return "", nil, err
	}
	return strings.Join(stmts, "; "), nil, nil
}

// Statements 每个操作一条 ALTER TABLE 语句, 按添加顺序排列
func (b *AlterTableBuilder) Statements(d Dialect) ([]string, error) {
	p, err := d.profile()
	if err != nil {
		return nil, err
	}
	if b.err != nil {
		return nil, b.err
	}
	if len(b.ops) == 0 {
		return nil, errors.Wrapf(ErrEmptyValues, "alter table %s without operations", b.table)
	}
	if len(b.ops) > 1 && !d.Supports(FeatureMultiAlter) {
		return nil, errors.WithStack(&UnsupportedError{
			Dialect: d,
			Feature: FeatureMultiAlter.String(),
			Message: fmt.Sprintf("%s only supports one operation per ALTER TABLE statement", d),
		})
	}
	stmts := make([]string, 0, len(b.ops))
	for _, op := range b.ops {
		clause, err := b.clause(d, p, op)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, "ALTER TABLE "+b.table+" "+clause)
	}
	return stmts, nil
}

func (b *AlterTableBuilder) clause(d Dialect, p profile, op alterOp) (string, error) {
	var bf bytes.Buffer
	switch op.kind {
	case alterAddColumn:
		if op.column.positioned() {
			if err := d.require(FeatureColumnPosition); err != nil {
				return "", err
			}
		}
		bf.WriteString("ADD COLUMN ")
		bf.WriteString(op.column.Name)
		bf.WriteString(" ")
		bf.WriteString(d.ColumnType(op.column.Type))
		writeColumnTail(&bf, op.column)
		writePosition(&bf, op.column)

	case alterDropColumn:
		if err := d.require(FeatureDropColumn); err != nil {
			return "", err
		}
		bf.WriteString("DROP COLUMN ")
		bf.WriteString(op.name)

	case alterModifyColumn:
		if err := d.require(FeatureModifyColumn); err != nil {
			return "", err
		}
		if op.column.positioned() {
			if err := d.require(FeatureColumnPosition); err != nil {
				return "", err
			}
		}
		c := op.column
		if p.alterColumnClauses {
			var parts []string
			if c.Type != "" {
				parts = append(parts, "ALTER COLUMN "+c.Name+" TYPE "+d.ColumnType(c.Type))
			}
			if c.NotNull {
				parts = append(parts, "ALTER COLUMN "+c.Name+" SET NOT NULL")
			}
			if c.Default != "" {
				parts = append(parts, "ALTER COLUMN "+c.Name+" SET DEFAULT "+c.Default)
			} else if c.DropDefault {
				parts = append(parts, "ALTER COLUMN "+c.Name+" DROP DEFAULT")
			}
			if len(parts) == 0 {
				return "", illegalArgument("modify column %s has nothing to change", c.Name)
			}
			bf.WriteString(strings.Join(parts, ", "))
			break
		}
		if strings.TrimSpace(c.Type) == "" {
			return "", illegalArgument("%s MODIFY COLUMN requires data type for %s", d, c.Name)
		}
		bf.WriteString("MODIFY COLUMN ")
		bf.WriteString(c.Name)
		bf.WriteString(" ")
		bf.WriteString(c.Type)
		writeColumnTail(&bf, c)
		writePosition(&bf, c)

	case alterRenameColumn:
		if p.changeColumn {
			if strings.TrimSpace(op.dataType) == "" {
				return "", illegalArgument("%s RENAME COLUMN requires data type (CHANGE COLUMN %s %s <type>)", d, op.name, op.newName)
			}
			bf.WriteString("CHANGE COLUMN ")
			bf.WriteString(op.name)
			bf.WriteString(" ")
			bf.WriteString(op.newName)
			bf.WriteString(" ")
			bf.WriteString(op.dataType)
			break
		}
		bf.WriteString("RENAME COLUMN ")
		bf.WriteString(op.name)
		bf.WriteString(" TO ")
		bf.WriteString(op.newName)

	case alterAddPrimaryKey:
		if err := d.require(FeatureAlterPrimaryKey); err != nil {
			return "", err
		}
		bf.WriteString("ADD PRIMARY KEY (")
		bf.WriteString(strings.Join(op.columns, ", "))
		bf.WriteString(")")

	case alterDropPrimaryKey:
		if err := d.require(FeatureAlterPrimaryKey); err != nil {
			return "", err
		}
		if strings.Contains(p.dropPrimaryKey, "%s") {
			bf.WriteString(fmt.Sprintf(p.dropPrimaryKey, b.table))
		} else {
			bf.WriteString(p.dropPrimaryKey)
		}

	case alterAddForeignKey:
		if err := d.require(FeatureAlterForeignKey); err != nil {
			return "", err
		}
		bf.WriteString("ADD ")
		bf.WriteString(op.fk.String())

	case alterDropForeignKey:
		if err := d.require(FeatureAlterForeignKey); err != nil {
			return "", err
		}
		bf.WriteString(p.dropForeignKey)
		bf.WriteString(" ")
		bf.WriteString(op.name)

	case alterAddUnique:
		if err := d.require(FeatureAlterUnique); err != nil {
			return "", err
		}
		bf.WriteString("ADD ")
		if op.name != "" {
			bf.WriteString("CONSTRAINT ")
			bf.WriteString(op.name)
			bf.WriteString(" ")
		}
		bf.WriteString("UNIQUE (")
		bf.WriteString(strings.Join(op.columns, ", "))
		bf.WriteString(")")

	case alterDropUnique:
		if err := d.require(FeatureAlterUnique); err != nil {
			return "", err
		}
		bf.WriteString(p.dropUnique)
		bf.WriteString(" ")
		bf.WriteString(op.name)

	case alterRenameTable:
		bf.WriteString("RENAME TO ")
		bf.WriteString(op.name)
	}
	return bf.String(), nil
}
