package builder

import (
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// Dialect 目标数据库
type Dialect int

const (
	SQLite Dialect = iota + 1
	MySQL
	MariaDB
	PostgreSQL
)

func (d Dialect) String() string {
	switch d {
	case SQLite:
		return "SQLite"
	case MySQL:
		return "MySQL"
	case MariaDB:
		return "MariaDB"
	case PostgreSQL:
		return "PostgreSQL"
	}
	return "Unknown"
}

// ParseDialect 从配置里的名字解析方言
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "mysql":
		return MySQL, nil
	case "mariadb":
		return MariaDB, nil
	case "postgres", "postgresql", "pg":
		return PostgreSQL, nil
	}
	return 0, errors.Wrapf(ErrIllegalArgument, "unknown dialect %q", name)
}

// Valid 是否是已知的方言
func (d Dialect) Valid() bool {
	_, ok := profiles[d]
	return ok
}

// Feature 方言能力
type Feature uint32

const (
	FeatureMultiAlter Feature = 1 << iota
	FeatureDropColumn
	FeatureModifyColumn
	FeatureColumnPosition
	FeatureAlterPrimaryKey
	FeatureAlterForeignKey
	FeatureAlterUnique
	FeatureIndexIfNotExists
	FeatureDropIndexIfExists
	FeatureDropIndexOnTable
	FeatureViewIfNotExists
	FeatureViewOrReplace
	FeatureTruncate
	FeatureTruncateModifiers
	FeatureFullJoin
)

var featureNames = map[Feature]string{
	FeatureMultiAlter:        "multiple operations per ALTER TABLE statement",
	FeatureDropColumn:        "DROP COLUMN",
	FeatureModifyColumn:      "MODIFY COLUMN",
	FeatureColumnPosition:    "column positioning (FIRST/AFTER)",
	FeatureAlterPrimaryKey:   "ADD/DROP PRIMARY KEY",
	FeatureAlterForeignKey:   "ADD/DROP FOREIGN KEY",
	FeatureAlterUnique:       "ADD/DROP UNIQUE",
	FeatureIndexIfNotExists:  "CREATE INDEX IF NOT EXISTS",
	FeatureDropIndexIfExists: "DROP INDEX IF EXISTS",
	FeatureDropIndexOnTable:  "DROP INDEX ... ON table",
	FeatureViewIfNotExists:   "CREATE VIEW IF NOT EXISTS",
	FeatureViewOrReplace:     "CREATE OR REPLACE VIEW",
	FeatureTruncate:          "TRUNCATE TABLE",
	FeatureTruncateModifiers: "TRUNCATE RESTART IDENTITY/CASCADE",
	FeatureFullJoin:          "FULL JOIN",
}

func (f Feature) String() string {
	if n, ok := featureNames[f]; ok {
		return n
	}
	return "unknown feature"
}

type upsertStyle int

const (
	upsertOnConflict upsertStyle = iota
	upsertOnDuplicateKey
)

type autoIncrementStyle int

const (
	autoIncrementInline   autoIncrementStyle = iota // INTEGER PRIMARY KEY AUTOINCREMENT
	autoIncrementKeyword                            // AUTO_INCREMENT
	autoIncrementIdentity                           // SERIAL / GENERATED BY DEFAULT AS IDENTITY
)

// profile 一个方言的全部能力和渲染方式, 新增方言只需要在 profiles 里加一条
type profile struct {
	features      Feature
	upsert        upsertStyle
	autoIncrement autoIncrementStyle
	// RENAME COLUMN a TO b 还是 CHANGE COLUMN a b type
	changeColumn bool
	// MODIFY COLUMN 还是拆成多个 ALTER COLUMN 子句
	alterColumnClauses bool
	dropForeignKey     string
	dropUnique         string
	dropPrimaryKey     string // 包含 %s 时替换为表名
	typeRewrites       map[string]string
	bindType           int
	// 引号内的 \ 转义下一个字符
	backslashEscapes bool
}

var profiles = map[Dialect]profile{
	SQLite: {
		features:      FeatureIndexIfNotExists | FeatureDropIndexIfExists | FeatureFullJoin,
		upsert:        upsertOnConflict,
		autoIncrement: autoIncrementInline,
		bindType:      sqlx.QUESTION,
	},
	MySQL: {
		features: FeatureMultiAlter | FeatureDropColumn | FeatureModifyColumn | FeatureColumnPosition |
			FeatureAlterPrimaryKey | FeatureAlterForeignKey | FeatureAlterUnique | FeatureDropIndexOnTable |
			FeatureViewOrReplace | FeatureTruncate,
		upsert:           upsertOnDuplicateKey,
		autoIncrement:    autoIncrementKeyword,
		changeColumn:     true,
		dropForeignKey:   "DROP FOREIGN KEY",
		dropUnique:       "DROP INDEX",
		dropPrimaryKey:   "DROP PRIMARY KEY",
		bindType:         sqlx.QUESTION,
		backslashEscapes: true,
	},
	MariaDB: {
		features: FeatureMultiAlter | FeatureDropColumn | FeatureModifyColumn | FeatureColumnPosition |
			FeatureAlterPrimaryKey | FeatureAlterForeignKey | FeatureAlterUnique | FeatureDropIndexOnTable |
			FeatureDropIndexIfExists | FeatureViewOrReplace | FeatureTruncate,
		upsert:           upsertOnDuplicateKey,
		autoIncrement:    autoIncrementKeyword,
		changeColumn:     true,
		dropForeignKey:   "DROP FOREIGN KEY",
		dropUnique:       "DROP INDEX",
		dropPrimaryKey:   "DROP PRIMARY KEY",
		bindType:         sqlx.QUESTION,
		backslashEscapes: true,
	},
	PostgreSQL: {
		features: FeatureMultiAlter | FeatureDropColumn | FeatureModifyColumn | FeatureAlterPrimaryKey |
			FeatureAlterForeignKey | FeatureAlterUnique | FeatureIndexIfNotExists | FeatureDropIndexIfExists |
			FeatureViewIfNotExists | FeatureViewOrReplace | FeatureTruncate | FeatureTruncateModifiers |
			FeatureFullJoin,
		upsert:             upsertOnConflict,
		autoIncrement:      autoIncrementIdentity,
		alterColumnClauses: true,
		dropForeignKey:     "DROP CONSTRAINT",
		dropUnique:         "DROP CONSTRAINT",
		dropPrimaryKey:     "DROP CONSTRAINT %s_pkey",
		typeRewrites: map[string]string{
			"DATETIME": "TIMESTAMP",
			"DOUBLE":   "DOUBLE PRECISION",
			"BLOB":     "BYTEA",
			"FLOAT":    "REAL",
		},
		bindType: sqlx.DOLLAR,
	},
}

func (d Dialect) profile() (profile, error) {
	p, ok := profiles[d]
	if !ok {
		return profile{}, errors.Wrapf(ErrIllegalArgument, "unknown dialect %d", int(d))
	}
	return p, nil
}

// Supports 查询方言是否支持某个功能
func (d Dialect) Supports(f Feature) bool {
	p, ok := profiles[d]
	return ok && p.features&f == f
}

// require 不支持时返回 UnsupportedError
func (d Dialect) require(f Feature) error {
	if d.Supports(f) {
		return nil
	}
	return unsupported(d, f.String())
}

// ColumnType 按方言改写列类型, 例如 PostgreSQL 的 DATETIME -> TIMESTAMP
func (d Dialect) ColumnType(sqlType string) string {
	p := profiles[d]
	if p.typeRewrites == nil {
		return sqlType
	}
	if t, ok := p.typeRewrites[strings.ToUpper(strings.TrimSpace(sqlType))]; ok {
		return t
	}
	return sqlType
}

// CountPlaceholders 按方言的字符串转义规则统计引号外的 ?
func (d Dialect) CountPlaceholders(query string) int {
	return len(placeholderIndexes(query, profiles[d].backslashEscapes))
}

// Rebind 把 ? 占位符转换成方言需要的形式, 引号内的 ? 保持不变
func (d Dialect) Rebind(query string) string {
	bindType := profiles[d].bindType
	if bindType != sqlx.DOLLAR || !strings.ContainsAny(query, "'\"`") {
		return sqlx.Rebind(bindType, query)
	}
	var (
		bf   strings.Builder
		last int
	)
	for n, i := range placeholderIndexes(query, profiles[d].backslashEscapes) {
		bf.WriteString(query[last:i])
		bf.WriteString("$")
		bf.WriteString(strconv.Itoa(n + 1))
		last = i + 1
	}
	bf.WriteString(query[last:])
	return bf.String()
}
