package builder

import (
	"bytes"
)

// DeleteBuilder DELETE FROM t [WHERE ...]
// 不带条件时删除整张表, 由调用方负责
type DeleteBuilder struct {
	errs
	table string
	where []Condition
}

func Delete(table string) *DeleteBuilder {
	b := &DeleteBuilder{table: table}
	b.add(checkIdentifier(table))
	return b
}

func (b *DeleteBuilder) Where(conds ...Condition) *DeleteBuilder {
	b.where = append(b.where, conds...)
	return b
}

func (b *DeleteBuilder) Render(d Dialect) (string, []any, error) {
	if _, err := d.profile(); err != nil {
		return "", nil, err
	}
	if b.err != nil {
		return "", nil, b.err
	}
	var bf bytes.Buffer
	bf.WriteString("DELETE FROM ")
	bf.WriteString(b.table)
	where, args, err := whereClause(b.where)
	if err != nil {
		return "", nil, err
	}
	bf.WriteString(where)
	return bf.String(), args, nil
}
