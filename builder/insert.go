package builder

import (
	"bytes"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// InsertBuilder INSERT 以及 upsert
//
//	Insert("users").Value("id", 1).Value("name", "Ann")
//	-> INSERT INTO users (id, name) VALUES (?, ?)  [1 Ann]
type InsertBuilder struct {
	errs
	table        string
	columns      []string
	values       []any
	upsert       bool
	conflictKeys []string
}

func Insert(table string) *InsertBuilder {
	b := &InsertBuilder{table: table}
	b.add(checkIdentifier(table))
	return b
}

// Upsert 冲突时更新
// SQLite/PostgreSQL: 必须通过 ConflictKeys 指定主键列, 渲染 ON CONFLICT(keys) DO UPDATE SET col = excluded.col
// MySQL/MariaDB: 渲染 ON DUPLICATE KEY UPDATE col = VALUES(col), 不需要冲突键
func Upsert(table string) *InsertBuilder {
	b := Insert(table)
	b.upsert = true
	return b
}

// Value 设置列的值, 同一列重复设置时覆盖之前的值, 列的顺序保持第一次设置的顺序
func (b *InsertBuilder) Value(column string, value any) *InsertBuilder {
	b.add(checkIdentifier(column))
	if i := lo.IndexOf(b.columns, column); i >= 0 {
		b.values[i] = value
		return b
	}
	b.columns = append(b.columns, column)
	b.values = append(b.values, value)
	return b
}

// Values 批量设置, map 没有顺序, 按列名排序
func (b *InsertBuilder) Values(data map[string]any) *InsertBuilder {
	keys := lo.Keys(data)
	sort.Strings(keys)
	for _, k := range keys {
		b.Value(k, data[k])
	}
	return b
}

// ConflictKeys 冲突键(主键列), 只用于 upsert
func (b *InsertBuilder) ConflictKeys(keys ...string) *InsertBuilder {
	b.add(checkIdentifiers(keys...))
	b.conflictKeys = lo.Uniq(append(b.conflictKeys, keys...))
	return b
}

func (b *InsertBuilder) Render(d Dialect) (string, []any, error) {
	p, err := d.profile()
	if err != nil {
		return "", nil, err
	}
	if b.err != nil {
		return "", nil, b.err
	}
	if len(b.columns) == 0 {
		return "", nil, errors.Wrapf(ErrEmptyValues, "insert into %s without values", b.table)
	}

	var bf bytes.Buffer
	bf.WriteString("INSERT INTO ")
	bf.WriteString(b.table)
	bf.WriteString(" (")
	bf.WriteString(strings.Join(b.columns, ", "))
	bf.WriteString(") VALUES (")
	bf.WriteString(placeholders(len(b.columns)))
	bf.WriteString(")")

	if b.upsert {
		// 冲突键只作为标识符出现, 不会产生参数
		updates := lo.Without(b.columns, b.conflictKeys...)
		switch p.upsert {
		case upsertOnConflict:
			if len(b.conflictKeys) == 0 {
				return "", nil, errors.Wrapf(ErrUpsertNoKeys, "%s upsert into %s", d, b.table)
			}
			bf.WriteString(" ON CONFLICT(")
			bf.WriteString(strings.Join(b.conflictKeys, ", "))
			bf.WriteString(")")
			if len(updates) == 0 {
				bf.WriteString(" DO NOTHING")
				break
			}
			bf.WriteString(" DO UPDATE SET ")
			bf.WriteString(strings.Join(lo.Map(updates, func(c string, _ int) string {
				return c + " = excluded." + c
			}), ", "))
		case upsertOnDuplicateKey:
			if len(updates) == 0 {
				updates = b.columns[:1]
			}
			bf.WriteString(" ON DUPLICATE KEY UPDATE ")
			bf.WriteString(strings.Join(lo.Map(updates, func(c string, _ int) string {
				return c + " = VALUES(" + c + ")"
			}), ", "))
		}
	}
	return bf.String(), append([]any(nil), b.values...), nil
}
