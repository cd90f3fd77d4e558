package multidb

import (
	"context"
	"database/sql"
	"reflect"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/preceeder/go.db.multidb/builder"
	"github.com/preceeder/go.db.multidb/mapper"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// Client 在 sqlx.DB 上按对象读写, 每个操作从连接池取一个连接, 返回前归还
type Client struct {
	db      *sqlx.DB
	tx      *sqlx.Tx
	dialect builder.Dialect
	mapper  *mapper.Mapper
	logger  zerolog.Logger
	debug   bool
}

type Option func(*Client)

// WithDebug 执行前以 info 级别打印 sql, 不打印参数
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithMapper(m *mapper.Mapper) Option {
	return func(c *Client) {
		c.mapper = m
	}
}

func New(db *sqlx.DB, d builder.Dialect, opts ...Option) (*Client, error) {
	if db == nil {
		return nil, errors.Wrap(ErrIllegalArgument, "nil db")
	}
	if !d.Valid() {
		return nil, errors.Wrapf(ErrIllegalArgument, "unknown dialect %d", int(d))
	}
	c := &Client{
		db:      db,
		dialect: d,
		mapper:  mapper.Default,
		logger:  log.Logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Open 按配置连接数据库, 内部已经 ping 了
func Open(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	d, err := cfg.dialect()
	if err != nil {
		return nil, err
	}
	driver, err := cfg.DriverName()
	if err != nil {
		return nil, err
	}
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if d == builder.SQLite && cfg.memory() {
		// 每个连接都是一个新的内存库
		db.SetMaxOpenConns(1)
	} else if cfg.MaxOpenCons > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenCons)
	}
	if cfg.MaxIdleCons > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleCons)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	c, err := New(db, d, append([]Option{WithDebug(cfg.Debug)}, opts...)...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	c.logger.Info().Str("dialect", d.String()).Str("driver", driver).
		Str("host", cfg.Host).Str("db", cfg.Db).Msg("connected")
	return c, nil
}

func (c *Client) DB() *sqlx.DB {
	return c.db
}

func (c *Client) Dialect() builder.Dialect {
	return c.dialect
}

func (c *Client) Mapper() *mapper.Mapper {
	return c.mapper
}

func (c *Client) Close() error {
	if c.tx != nil {
		return errors.Wrap(ErrIllegalArgument, "close inside transaction")
	}
	if err := c.db.Close(); err != nil {
		c.logger.Error().Err(err).Msg("close db")
		return err
	}
	c.logger.Info().Str("dialect", c.dialect.String()).Msg("close db")
	return nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.withConn(ctx, func(p builder.Preparer) error {
		if c.tx != nil {
			return nil
		}
		return p.(*sqlx.Conn).PingContext(ctx)
	})
}

// withConn 事务中使用事务本身, 否则取一个连接, fn 返回后归还
func (c *Client) withConn(ctx context.Context, fn func(p builder.Preparer) error) error {
	if c.tx != nil {
		return fn(c.tx)
	}
	conn, err := c.db.Connx(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(conn)
}

func (c *Client) build(ctx context.Context, p builder.Preparer, st builder.Statement) (*builder.Prepared, error) {
	prepared, err := builder.Build(ctx, p, c.dialect, st)
	if err != nil {
		c.logger.Error().Err(err).Str("dialect", c.dialect.String()).Msg("build statement")
		return nil, err
	}
	if c.debug {
		c.logger.Info().Str("dialect", c.dialect.String()).Str("sql", prepared.SQL).Msg("sql")
	}
	return prepared, nil
}

func (c *Client) exec(ctx context.Context, p builder.Preparer, st builder.Statement) (sql.Result, error) {
	prepared, err := c.build(ctx, p, st)
	if err != nil {
		return nil, err
	}
	defer prepared.Close()
	res, err := prepared.ExecContext(ctx)
	if err != nil {
		c.logger.Error().Err(err).Str("sql", prepared.SQL).Msg("execute failed")
		return nil, err
	}
	return res, nil
}

// Execute 执行不返回结果集的语句
// 多条语句 (例如多个操作的 ALTER TABLE) 在同一个连接上逐条执行, 返回最后一条的结果
func (c *Client) Execute(ctx context.Context, st builder.Statement) (res sql.Result, err error) {
	err = c.withConn(ctx, func(p builder.Preparer) error {
		multi, ok := st.(builder.MultiStatement)
		if !ok {
			res, err = c.exec(ctx, p, st)
			return err
		}
		stmts, err := multi.Statements(c.dialect)
		if err != nil {
			c.logger.Error().Err(err).Str("dialect", c.dialect.String()).Msg("build statement")
			return err
		}
		for _, query := range stmts {
			if res, err = c.exec(ctx, p, builder.RawSQL(query)); err != nil {
				return err
			}
		}
		return nil
	})
	return res, err
}

// Rows 关闭时一起关闭语句和连接
type Rows struct {
	*sqlx.Rows
	stmt *builder.Prepared
	conn *sqlx.Conn
}

func (r *Rows) Close() error {
	err := r.Rows.Close()
	if e := r.stmt.Close(); err == nil {
		err = e
	}
	if r.conn != nil {
		if e := r.conn.Close(); err == nil {
			err = e
		}
	}
	return err
}

// Query 调用方负责 Close
func (c *Client) Query(ctx context.Context, st builder.Statement) (*Rows, error) {
	var conn *sqlx.Conn
	var p builder.Preparer = c.tx
	if c.tx == nil {
		var err error
		if conn, err = c.db.Connx(ctx); err != nil {
			return nil, err
		}
		p = conn
	}
	release := func() {
		if conn != nil {
			_ = conn.Close()
		}
	}

	prepared, err := c.build(ctx, p, st)
	if err != nil {
		release()
		return nil, err
	}
	rows, err := prepared.QueryxContext(ctx)
	if err != nil {
		c.logger.Error().Err(err).Str("sql", prepared.SQL).Msg("query failed")
		_ = prepared.Close()
		release()
		return nil, err
	}
	return &Rows{Rows: rows, stmt: prepared, conn: conn}, nil
}

func (c *Client) metaOf(model any) (*mapper.Meta, error) {
	meta, err := c.mapper.MetaOf(model)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(meta.Table) == "" {
		return nil, errors.Wrapf(ErrIllegalArgument, "%s has no table name", meta.Type)
	}
	return meta, nil
}

func (c *Client) selectFor(meta *mapper.Meta, conds []builder.Condition) *builder.SelectBuilder {
	return builder.Select(lo.ToAnySlice(meta.Columns())...).From(meta.Table).Where(conds...)
}

// SelectOne 读取第一条记录到 dest, 没有记录时返回 false
func (c *Client) SelectOne(ctx context.Context, dest any, conds ...builder.Condition) (bool, error) {
	meta, err := c.metaOf(dest)
	if err != nil {
		return false, err
	}
	rows, err := c.Query(ctx, c.selectFor(meta, conds).First())
	if err != nil {
		return false, err
	}
	defer rows.Close()

	switch err = c.mapper.ScanOne(rows, dest); {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

// SelectMulti dest 为 *[]T 或 *[]*T
func (c *Client) SelectMulti(ctx context.Context, dest any, conds ...builder.Condition) error {
	meta, err := c.metaOf(dest)
	if err != nil {
		return err
	}
	rows, err := c.Query(ctx, c.selectFor(meta, conds))
	if err != nil {
		return err
	}
	defer rows.Close()
	return c.mapper.ScanAll(rows, dest)
}

// Find 泛型形式的 SelectOne
func Find[T any](ctx context.Context, c *Client, conds ...builder.Condition) (*T, bool, error) {
	v := new(T)
	ok, err := c.SelectOne(ctx, v, conds...)
	if err != nil || !ok {
		return nil, ok, err
	}
	return v, true, nil
}

func FindAll[T any](ctx context.Context, c *Client, conds ...builder.Condition) ([]T, error) {
	var out []T
	if err := c.SelectMulti(ctx, &out, conds...); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateTableFor 按结构体的字段定义建表
func (c *Client) CreateTableFor(ctx context.Context, model any, ifNotExists bool) error {
	meta, err := c.metaOf(model)
	if err != nil {
		return err
	}
	ct := builder.CreateTable(meta.Table)
	if ifNotExists {
		ct.IfNotExists()
	}
	for _, f := range meta.Fields {
		ct.Column(builder.Column{
			Name:          f.Column,
			Type:          f.SQLType,
			NotNull:       f.NotNull,
			Default:       f.Default,
			PrimaryKey:    f.PrimaryKey,
			AutoIncrement: f.AutoIncrement,
			Unique:        f.Unique,
		})
	}
	_, err = c.Execute(ctx, ct)
	return err
}

// InsertObject 零值的自增列不写入; upsert 时以主键作为冲突键
// 非 PostgreSQL 方言会把生成的自增值写回 obj
func (c *Client) InsertObject(ctx context.Context, obj any, upsert bool) (sql.Result, error) {
	meta, err := c.metaOf(obj)
	if err != nil {
		return nil, err
	}
	values, err := c.mapper.ValuesFor(obj)
	if err != nil {
		return nil, err
	}

	var ib *builder.InsertBuilder
	if upsert {
		ib = builder.Upsert(meta.Table).ConflictKeys(meta.PrimaryKeys()...)
	} else {
		ib = builder.Insert(meta.Table)
	}
	var generated *mapper.FieldMeta
	for _, v := range values {
		if v.Field.AutoIncrement && v.Zero {
			generated = v.Field
			continue
		}
		ib.Value(v.Column, v.Value)
	}

	res, err := c.Execute(ctx, ib)
	if err != nil {
		return nil, err
	}
	if generated != nil && c.dialect != builder.PostgreSQL {
		c.assignGenerated(obj, generated, res)
	}
	return res, nil
}

func (c *Client) assignGenerated(obj any, f *mapper.FieldMeta, res sql.Result) {
	rv := reflect.ValueOf(obj)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return
	}
	id, err := res.LastInsertId()
	if err != nil || id == 0 {
		return
	}
	if err := c.mapper.Registry().Assign(rv.Elem().FieldByIndex(f.Index), id); err != nil {
		c.logger.Warn().Err(err).Str("field", f.Name).Msg("assign generated id")
	}
}

// UpdateObject 按 cond 更新除主键外的所有列, 返回影响的行数
func (c *Client) UpdateObject(ctx context.Context, obj any, cond builder.Condition) (int64, error) {
	if cond.IsZero() {
		return 0, errors.Wrap(ErrIllegalArgument, "update requires a condition")
	}
	meta, err := c.metaOf(obj)
	if err != nil {
		return 0, err
	}
	values, err := c.mapper.ValuesFor(obj)
	if err != nil {
		return 0, err
	}
	ub := builder.Update(meta.Table).Where(cond)
	for _, v := range values {
		if v.Field.PrimaryKey {
			continue
		}
		ub.Set(v.Column, v.Value)
	}
	res, err := c.Execute(ctx, ub)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteObject model 只用来确定表名
func (c *Client) DeleteObject(ctx context.Context, model any, cond builder.Condition) (int64, error) {
	if cond.IsZero() {
		return 0, errors.Wrap(ErrIllegalArgument, "delete requires a condition")
	}
	meta, err := c.metaOf(model)
	if err != nil {
		return 0, err
	}
	res, err := c.Execute(ctx, builder.Delete(meta.Table).Where(cond))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Transaction fn 中通过 tx 执行的操作都在同一个事务里
// fn 返回错误或 panic 时回滚, 否则提交
func (c *Client) Transaction(ctx context.Context, fn func(ctx context.Context, tx *Client) error) (err error) {
	if c.tx != nil {
		return fn(ctx, c)
	}
	beginx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		c.logger.Error().Err(err).Msg("begin transaction")
		return err
	}
	tx := *c
	tx.tx = beginx

	defer func() {
		if p := recover(); p != nil {
			err = errors.Errorf("transaction panic: %v", p)
		}
		if err != nil {
			if rbErr := beginx.Rollback(); rbErr != nil {
				c.logger.Error().Err(rbErr).Msg("rollback")
			}
			c.logger.Error().Err(err).Msg("transaction rolled back")
			return
		}
		if err = beginx.Commit(); err != nil {
			c.logger.Error().Err(err).Msg("commit")
		}
	}()
	return fn(ctx, &tx)
}
