package multidb

import (
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/preceeder/go.db.multidb/builder"
	"github.com/preceeder/go.db.multidb/mapper"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	ErrIllegalIdentifier    = builder.ErrIllegalIdentifier
	ErrIllegalArgument      = builder.ErrIllegalArgument
	ErrUnsupportedOperation = builder.ErrUnsupportedOperation
	ErrParameterMismatch    = builder.ErrParameterMismatch
	ErrUpsertNoKeys         = builder.ErrUpsertNoKeys
	ErrEmptyValues          = builder.ErrEmptyValues
	ErrUnsupportedType      = mapper.ErrUnsupportedType
	ErrCannotInstantiate    = mapper.ErrCannotInstantiate
)

// mysql 唯一键冲突
const mysqlDuplicateEntry = 1062

// IsDuplicateKey 驱动返回的错误是否为唯一键/主键冲突
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDuplicateEntry
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.UniqueViolation
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgerrcode.UniqueViolation
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		case sqlite3.SQLITE_CONSTRAINT:
			// 没有开启扩展错误码时只能看错误信息
			return strings.Contains(liteErr.Error(), "UNIQUE constraint failed")
		}
		return false
	}
	return false
}
