package builder

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// Preparer *sqlx.DB, *sqlx.Conn, *sqlx.Tx 都满足
type Preparer interface {
	PreparexContext(ctx context.Context, query string) (*sqlx.Stmt, error)
}

// Prepared 已经准备好的语句, 参数按 ? 的顺序绑定
type Prepared struct {
	SQL  string // 方言最终的 sql, PostgreSQL 为 $1, $2 ...
	Args []any
	Stmt *sqlx.Stmt
}

func (p *Prepared) ExecContext(ctx context.Context) (sql.Result, error) {
	return p.Stmt.ExecContext(ctx, p.Args...)
}

func (p *Prepared) QueryxContext(ctx context.Context) (*sqlx.Rows, error) {
	return p.Stmt.QueryxContext(ctx, p.Args...)
}

func (p *Prepared) Close() error {
	if p == nil || p.Stmt == nil {
		return nil
	}
	return p.Stmt.Close()
}

// Render 渲染并检查占位符数量与参数数量是否一致, 返回方言最终的 sql
func Render(d Dialect, st Statement) (string, []any, error) {
	if st == nil {
		return "", nil, errors.Wrap(ErrIllegalArgument, "nil statement")
	}
	query, args, err := st.Render(d)
	if err != nil {
		return "", nil, err
	}
	if n := d.CountPlaceholders(query); n != len(args) {
		return "", nil, errors.Wrapf(ErrParameterMismatch, "expected %d but got %d", n, len(args))
	}
	return d.Rebind(query), args, nil
}

// Build 渲染语句并在 p 上 prepare
func Build(ctx context.Context, p Preparer, d Dialect, st Statement) (*Prepared, error) {
	query, args, err := Render(d, st)
	if err != nil {
		return nil, err
	}
	// 驱动返回的错误原样返回
	stmt, err := p.PreparexContext(ctx, query)
	if err != nil {
		return nil, err
	}
	return &Prepared{SQL: query, Args: args, Stmt: stmt}, nil
}
