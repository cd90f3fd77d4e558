package builder

import (
	"bytes"
)

// TruncateBuilder TRUNCATE TABLE t
// RESTART IDENTITY / CASCADE 只在 PostgreSQL 输出; SQLite 没有 TRUNCATE, 使用 DELETE FROM t
type TruncateBuilder struct {
	errs
	table           string
	restartIdentity bool
	cascade         bool
}

func Truncate(table string) *TruncateBuilder {
	b := &TruncateBuilder{table: table}
	b.add(checkIdentifier(table))
	return b
}

func (b *TruncateBuilder) RestartIdentity() *TruncateBuilder {
	b.restartIdentity = true
	return b
}

func (b *TruncateBuilder) Cascade() *TruncateBuilder {
	b.cascade = true
	return b
}

func (b *TruncateBuilder) Render(d Dialect) (string, []any, error) {
	if _, err := d.profile(); err != nil {
		return "", nil, err
	}
	if b.err != nil {
		return "", nil, b.err
	}
	if !d.Supports(FeatureTruncate) {
		return "DELETE FROM " + b.table, nil, nil
	}
	var bf bytes.Buffer
	bf.WriteString("TRUNCATE TABLE ")
	bf.WriteString(b.table)
	if d.Supports(FeatureTruncateModifiers) {
		if b.restartIdentity {
			bf.WriteString(" RESTART IDENTITY")
		}
		if b.cascade {
			bf.WriteString(" CASCADE")
		}
	}
	return bf.String(), nil, nil
}
