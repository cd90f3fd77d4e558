package builder

import (
	"bytes"
	"strconv"
)

// JoinType 连接方式
type JoinType string

const (
	InnerJoin JoinType = "INNER"
	LeftJoin  JoinType = "LEFT"
	RightJoin JoinType = "RIGHT"
	FullJoin  JoinType = "FULL"
)

type table struct {
	Name  string
	Label string
}

func newTable(name string, alias ...string) (table, error) {
	t := table{Name: name}
	if err := checkIdentifier(name); err != nil {
		return t, err
	}
	if len(alias) > 0 && alias[0] != "" {
		t.Label = alias[0]
		if err := checkIdentifier(t.Label); err != nil {
			return t, err
		}
	}
	return t, nil
}

func (t table) String() string {
	if t.Label == "" {
		return t.Name
	}
	return t.Name + " " + t.Label
}

type join struct {
	JoinType JoinType
	Table    table
	On       Condition
}

// SelectBuilder SELECT 语句
//
//	Select("u.id", "u.name", Count("o.id").As("orders")).
//		From("users", "u").
//		LeftJoin("orders", Eq("o.user_id", Col("u.id")), "o").
//		Where(Eq("u.age", 30)).
//		GroupBy("u.id", "u.name").
//		Limit(10)
type SelectBuilder struct {
	errs
	table   table
	fields  []Fd
	joins   []join
	where   []Condition
	groupBy []Fd
	having  Condition
	orderBy []Fd
	limit   int
	offset  int
}

// Select 设置查询的字段列表, 参数可以是 string 或 Fd; 不传时为 *
func Select(fields ...any) *SelectBuilder {
	s := &SelectBuilder{}
	for _, f := range fields {
		s.fields = append(s.fields, toField(f))
	}
	return s
}

// From 设置表名, alias 可选
func (s *SelectBuilder) From(name string, alias ...string) *SelectBuilder {
	t, err := newTable(name, alias...)
	s.add(err)
	s.table = t
	return s
}

// Where 多次调用或传入多个条件时使用 AND 连接
func (s *SelectBuilder) Where(conds ...Condition) *SelectBuilder {
	s.where = append(s.where, conds...)
	return s
}

// Join
// on 中列与列的比较使用 Col: Eq("o.user_id", Col("u.id"))
func (s *SelectBuilder) Join(kind JoinType, name string, on Condition, alias ...string) *SelectBuilder {
	t, err := newTable(name, alias...)
	s.add(err)
	switch kind {
	case InnerJoin, LeftJoin, RightJoin, FullJoin:
	default:
		s.add(illegalArgument("join type %q", kind))
	}
	s.joins = append(s.joins, join{JoinType: kind, Table: t, On: on})
	return s
}

func (s *SelectBuilder) InnerJoin(name string, on Condition, alias ...string) *SelectBuilder {
	return s.Join(InnerJoin, name, on, alias...)
}

func (s *SelectBuilder) LeftJoin(name string, on Condition, alias ...string) *SelectBuilder {
	return s.Join(LeftJoin, name, on, alias...)
}

func (s *SelectBuilder) RightJoin(name string, on Condition, alias ...string) *SelectBuilder {
	return s.Join(RightJoin, name, on, alias...)
}

func (s *SelectBuilder) FullJoin(name string, on Condition, alias ...string) *SelectBuilder {
	return s.Join(FullJoin, name, on, alias...)
}

func (s *SelectBuilder) GroupBy(fields ...any) *SelectBuilder {
	for _, f := range fields {
		s.groupBy = append(s.groupBy, toField(f))
	}
	return s
}

func (s *SelectBuilder) Having(cond Condition) *SelectBuilder {
	s.having = cond
	return s
}

// OrderBy 参数可以是 string 或 Fd: OrderBy(Col("age").Desc(), "id")
func (s *SelectBuilder) OrderBy(fields ...any) *SelectBuilder {
	for _, f := range fields {
		s.orderBy = append(s.orderBy, toField(f))
	}
	return s
}

func (s *SelectBuilder) Limit(limit int) *SelectBuilder {
	s.limit = limit
	return s
}

// Offset 设置查询的偏移量（用于分页）
func (s *SelectBuilder) Offset(offset int) *SelectBuilder {
	s.offset = offset
	return s
}

func (s *SelectBuilder) First() *SelectBuilder {
	s.limit = 1
	return s
}

// TableName 当前的表名
func (s *SelectBuilder) TableName() string {
	return s.table.Name
}

func (s *SelectBuilder) Render(d Dialect) (string, []any, error) {
	if _, err := d.profile(); err != nil {
		return "", nil, err
	}
	if s.err != nil {
		return "", nil, s.err
	}
	if s.table.Name == "" {
		return "", nil, illegalArgument("select without table")
	}
	var (
		bf   bytes.Buffer
		args []any
	)
	bf.WriteString("SELECT ")
	if len(s.fields) == 0 {
		bf.WriteString("*")
	} else {
		fs, a, err := joinFields(s.fields)
		if err != nil {
			return "", nil, err
		}
		bf.WriteString(fs)
		args = append(args, a...)
	}
	bf.WriteString(" FROM ")
	bf.WriteString(s.table.String())

	for _, j := range s.joins {
		if j.JoinType == FullJoin {
			if err := d.require(FeatureFullJoin); err != nil {
				return "", nil, err
			}
		}
		bf.WriteString(" ")
		bf.WriteString(string(j.JoinType))
		bf.WriteString(" JOIN ")
		bf.WriteString(j.Table.String())
		bf.WriteString(" ON ")
		on, a, err := j.On.Render()
		if err != nil {
			return "", nil, err
		}
		bf.WriteString(on)
		args = append(args, a...)
	}

	where, a, err := whereClause(s.where)
	if err != nil {
		return "", nil, err
	}
	bf.WriteString(where)
	args = append(args, a...)

	if len(s.groupBy) > 0 {
		gs, a, err := joinFields(s.groupBy)
		if err != nil {
			return "", nil, err
		}
		bf.WriteString(" GROUP BY ")
		bf.WriteString(gs)
		args = append(args, a...)
		if !s.having.IsZero() {
			hs, a, err := s.having.Render()
			if err != nil {
				return "", nil, err
			}
			bf.WriteString(" HAVING ")
			bf.WriteString(hs)
			args = append(args, a...)
		}
	} else if !s.having.IsZero() {
		return "", nil, illegalArgument("HAVING without GROUP BY")
	}

	if len(s.orderBy) > 0 {
		ob, a, err := joinFields(s.orderBy)
		if err != nil {
			return "", nil, err
		}
		bf.WriteString(" ORDER BY ")
		bf.WriteString(ob)
		args = append(args, a...)
	}

	// 四种方言都支持 LIMIT n OFFSET m
	if s.limit > 0 {
		bf.WriteString(" LIMIT ")
		bf.WriteString(strconv.Itoa(s.limit))
	}
	if s.offset > 0 {
		if s.limit <= 0 {
			return "", nil, illegalArgument("OFFSET without LIMIT")
		}
		bf.WriteString(" OFFSET ")
		bf.WriteString(strconv.Itoa(s.offset))
	}
	return bf.String(), args, nil
}
