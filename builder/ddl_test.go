package builder

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTable(t *testing.T) {
	b := CreateTable("users").
		Column(Column{Name: "id", Type: "INTEGER", PrimaryKey: true, AutoIncrement: true}).
		Column(Column{Name: "name", Type: "TEXT", NotNull: true})

	want := map[Dialect]string{
		SQLite:     "CREATE TABLE users (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL)",
		MySQL:      "CREATE TABLE users (id INTEGER NOT NULL AUTO_INCREMENT, name TEXT NOT NULL, PRIMARY KEY (id))",
		MariaDB:    "CREATE TABLE users (id INTEGER NOT NULL AUTO_INCREMENT, name TEXT NOT NULL, PRIMARY KEY (id))",
		PostgreSQL: "CREATE TABLE users (id SERIAL, name TEXT NOT NULL, PRIMARY KEY (id))",
	}
	for d, sql := range want {
		got, args, err := b.Render(d)
		require.NoError(t, err, d)
		assert.Equal(t, sql, got, d)
		assert.Empty(t, args)
	}

	t.Run("if not exists + 类型改写", func(t *testing.T) {
		b := CreateTable("events").IfNotExists().
			Column(Column{Name: "id", Type: "BIGINT", PrimaryKey: true}).
			Column(Column{Name: "at", Type: "DATETIME", Default: "CURRENT_TIMESTAMP"}).
			Column(Column{Name: "score", Type: "DOUBLE"}).
			Column(Column{Name: "payload", Type: "BLOB"}).
			Column(Column{Name: "code", Type: "VARCHAR(100)", Unique: true})
		sql, _, err := b.Render(PostgreSQL)
		require.NoError(t, err)
		assert.Equal(t, "CREATE TABLE IF NOT EXISTS events (id BIGINT, at TIMESTAMP DEFAULT CURRENT_TIMESTAMP, "+
			"score DOUBLE PRECISION, payload BYTEA, code VARCHAR(100) UNIQUE, PRIMARY KEY (id))", sql)
		sql, _, err = b.Render(SQLite)
		require.NoError(t, err)
		assert.Equal(t, "CREATE TABLE IF NOT EXISTS events (id BIGINT, at DATETIME DEFAULT CURRENT_TIMESTAMP, "+
			"score DOUBLE, payload BLOB, code VARCHAR(100) UNIQUE, PRIMARY KEY (id))", sql)
	})

	t.Run("PostgreSQL identity", func(t *testing.T) {
		sql, _, err := CreateTable("t").
			Column(Column{Name: "id", Type: "BIGINT", PrimaryKey: true, AutoIncrement: true}).Render(PostgreSQL)
		require.NoError(t, err)
		assert.Equal(t, "CREATE TABLE t (id BIGSERIAL, PRIMARY KEY (id))", sql)
		sql, _, err = CreateTable("t").
			Column(Column{Name: "id", Type: "NUMERIC(10)", PrimaryKey: true, AutoIncrement: true}).Render(PostgreSQL)
		require.NoError(t, err)
		assert.Equal(t, "CREATE TABLE t (id NUMERIC(10) GENERATED BY DEFAULT AS IDENTITY, PRIMARY KEY (id))", sql)
	})

	t.Run("复合主键 + 外键", func(t *testing.T) {
		sql, _, err := CreateTable("tags").
			Column(Column{Name: "post_id", Type: "INTEGER", PrimaryKey: true}).
			Column(Column{Name: "tag", Type: "TEXT", PrimaryKey: true}).
			ForeignKey(ForeignKey{Columns: []string{"post_id"}, RefTable: "posts", RefColumns: []string{"id"}, OnDelete: "cascade"}).
			Render(SQLite)
		require.NoError(t, err)
		assert.Equal(t, "CREATE TABLE tags (post_id INTEGER, tag TEXT, PRIMARY KEY (post_id, tag), "+
			"FOREIGN KEY (post_id) REFERENCES posts(id) ON DELETE CASCADE)", sql)
	})

	t.Run("错误", func(t *testing.T) {
		_, _, err := CreateTable("t").Render(SQLite)
		assert.True(t, errors.Is(err, ErrEmptyValues))
		_, _, err = CreateTable("t").Column(Column{Name: "id"}).Render(SQLite)
		assert.True(t, errors.Is(err, ErrIllegalArgument))
		_, _, err = CreateTable("t").Column(Column{Name: "id", Type: "INT"}).Column(Column{Name: "ID", Type: "INT"}).Render(SQLite)
		assert.True(t, errors.Is(err, ErrIllegalArgument))
		_, _, err = CreateTable("t").Column(Column{Name: "n", Type: "INT", AutoIncrement: true}).Render(SQLite)
		assert.True(t, errors.Is(err, ErrUnsupportedOperation))
		_, _, err = CreateTable("t").Column(Column{Name: "n", Type: "INT", Default: "0; DROP TABLE x"}).Render(SQLite)
		assert.True(t, errors.Is(err, ErrIllegalArgument))
		_, _, err = CreateTable("t").Column(Column{Name: "bad name", Type: "INT"}).Render(SQLite)
		assert.True(t, errors.Is(err, ErrIllegalIdentifier))
	})
}

func TestAlterTable(t *testing.T) {
	t.Run("SQLite 只支持一个操作", func(t *testing.T) {
		b := AlterTable("users").
			AddColumn(Column{Name: "age", Type: "INTEGER"}).
			RenameTo("members")
		_, _, err := b.Render(SQLite)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnsupportedOperation))
		assert.Contains(t, err.Error(), "SQLite only supports one operation per ALTER TABLE")

		var ue *UnsupportedError
		require.True(t, errors.As(err, &ue))
		assert.Equal(t, SQLite, ue.Dialect)

		sql, _, err := b.Render(PostgreSQL)
		require.NoError(t, err)
		assert.Equal(t, "ALTER TABLE users ADD COLUMN age INTEGER; ALTER TABLE users RENAME TO members", sql)

		stmts, err := b.Statements(PostgreSQL)
		require.NoError(t, err)
		assert.Equal(t, []string{"ALTER TABLE users ADD COLUMN age INTEGER", "ALTER TABLE users RENAME TO members"}, stmts)
		_, err = b.Statements(SQLite)
		assert.True(t, errors.Is(err, ErrUnsupportedOperation))

		var st Statement = b
		_, ok := st.(MultiStatement)
		assert.True(t, ok)
	})

	t.Run("列位置", func(t *testing.T) {
		b := AlterTable("users").
			AddColumn(Column{Name: "age", Type: "INT", NotNull: true, Default: "0", After: "name"}).
			DropColumn("nick")
		sql, _, err := b.Render(MySQL)
		require.NoError(t, err)
		assert.Equal(t, "ALTER TABLE users ADD COLUMN age INT NOT NULL DEFAULT 0 AFTER name; ALTER TABLE users DROP COLUMN nick", sql)

		single := AlterTable("users").AddColumn(Column{Name: "age", Type: "INT", First: true})
		for _, d := range []Dialect{SQLite, PostgreSQL} {
			_, _, err := single.Render(d)
			assert.True(t, errors.Is(err, ErrUnsupportedOperation), d)
		}
		sql, _, err = single.Render(MariaDB)
		require.NoError(t, err)
		assert.Equal(t, "ALTER TABLE users ADD COLUMN age INT FIRST", sql)
	})

	t.Run("SQLite 不支持的操作", func(t *testing.T) {
		ops := []*AlterTableBuilder{
			AlterTable("users").DropColumn("nick"),
			AlterTable("users").ModifyColumn(Column{Name: "age", Type: "BIGINT"}),
			AlterTable("users").DropPrimaryKey(),
			AlterTable("users").AddPrimaryKey("id"),
			AlterTable("users").DropForeignKey("fk"),
			AlterTable("users").DropUnique("uq"),
		}
		for _, b := range ops {
			_, _, err := b.Render(SQLite)
			assert.True(t, errors.Is(err, ErrUnsupportedOperation))
		}
	})

	t.Run("modify column", func(t *testing.T) {
		b := AlterTable("users").ModifyColumn(Column{Name: "age", Type: "BIGINT", NotNull: true, DropDefault: true})
		sql, _, err := b.Render(PostgreSQL)
		require.NoError(t, err)
		assert.Equal(t, "ALTER TABLE users ALTER COLUMN age TYPE BIGINT, ALTER COLUMN age SET NOT NULL, ALTER COLUMN age DROP DEFAULT", sql)

		sql, _, err = AlterTable("users").ModifyColumn(Column{Name: "age", Default: "1"}).Render(PostgreSQL)
		require.NoError(t, err)
		assert.Equal(t, "ALTER TABLE users ALTER COLUMN age SET DEFAULT 1", sql)

		_, _, err = AlterTable("users").ModifyColumn(Column{Name: "age"}).Render(PostgreSQL)
		assert.True(t, errors.Is(err, ErrIllegalArgument))

		sql, _, err = AlterTable("users").ModifyColumn(Column{Name: "age", Type: "BIGINT", NotNull: true, First: true}).Render(MySQL)
		require.NoError(t, err)
		assert.Equal(t, "ALTER TABLE users MODIFY COLUMN age BIGINT NOT NULL FIRST", sql)
	})

	t.Run("rename column", func(t *testing.T) {
		for _, d := range []Dialect{SQLite, PostgreSQL} {
			sql, _, err := AlterTable("users").RenameColumn("nick", "nickname").Render(d)
			require.NoError(t, err)
			assert.Equal(t, "ALTER TABLE users RENAME COLUMN nick TO nickname", sql)
		}
		_, _, err := AlterTable("users").RenameColumn("nick", "nickname").Render(MySQL)
		assert.True(t, errors.Is(err, ErrIllegalArgument))
		assert.Contains(t, err.Error(), "requires data type")

		sql, _, err := AlterTable("users").RenameColumn("nick", "nickname", "VARCHAR(64)").Render(MariaDB)
		require.NoError(t, err)
		assert.Equal(t, "ALTER TABLE users CHANGE COLUMN nick nickname VARCHAR(64)", sql)
	})

	t.Run("约束", func(t *testing.T) {
		fk := ForeignKey{Name: "fk_orders_user", Columns: []string{"user_id"}, RefTable: "users", RefColumns: []string{"id"}, OnDelete: "cascade"}
		sql, _, err := AlterTable("orders").AddForeignKey(fk).Render(MySQL)
		require.NoError(t, err)
		assert.Equal(t, "ALTER TABLE orders ADD CONSTRAINT fk_orders_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE", sql)

		cases := []struct {
			b    *AlterTableBuilder
			d    Dialect
			want string
		}{
			{AlterTable("orders").DropForeignKey("fk_orders_user"), PostgreSQL, "ALTER TABLE orders DROP CONSTRAINT fk_orders_user"},
			{AlterTable("orders").DropForeignKey("fk_orders_user"), MySQL, "ALTER TABLE orders DROP FOREIGN KEY fk_orders_user"},
			{AlterTable("users").AddUnique("uq_email", "email"), PostgreSQL, "ALTER TABLE users ADD CONSTRAINT uq_email UNIQUE (email)"},
			{AlterTable("users").AddUnique("", "email", "name"), MySQL, "ALTER TABLE users ADD UNIQUE (email, name)"},
			{AlterTable("users").DropUnique("uq_email"), PostgreSQL, "ALTER TABLE users DROP CONSTRAINT uq_email"},
			{AlterTable("users").DropUnique("uq_email"), MariaDB, "ALTER TABLE users DROP INDEX uq_email"},
			{AlterTable("users").AddPrimaryKey("id", "tenant"), MySQL, "ALTER TABLE users ADD PRIMARY KEY (id, tenant)"},
			{AlterTable("users").DropPrimaryKey(), MySQL, "ALTER TABLE users DROP PRIMARY KEY"},
			{AlterTable("users").DropPrimaryKey(), PostgreSQL, "ALTER TABLE users DROP CONSTRAINT users_pkey"},
			{AlterTable("users").RenameTo("members"), SQLite, "ALTER TABLE users RENAME TO members"},
		}
		for _, c := range cases {
			sql, _, err := c.b.Render(c.d)
			require.NoError(t, err)
			assert.Equal(t, c.want, sql)
		}

		_, _, err = AlterTable("orders").AddForeignKey(ForeignKey{Columns: []string{"a"}, RefTable: "b", RefColumns: []string{"id"}, OnDelete: "explode"}).Render(MySQL)
		assert.True(t, errors.Is(err, ErrIllegalArgument))
	})

	t.Run("没有操作", func(t *testing.T) {
		_, _, err := AlterTable("users").Render(MySQL)
		assert.True(t, errors.Is(err, ErrEmptyValues))
	})
}

func TestCreateIndex(t *testing.T) {
	b := CreateIndex("idx_users_email").On("users").Columns("email").Unique().IfNotExists()
	for _, d := range []Dialect{SQLite, PostgreSQL} {
		sql, _, err := b.Render(d)
		require.NoError(t, err)
		assert.Equal(t, "CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users (email)", sql)
	}
	for _, d := range []Dialect{MySQL, MariaDB} {
		sql, _, err := b.Render(d)
		require.NoError(t, err)
		assert.Equal(t, "CREATE UNIQUE INDEX idx_users_email ON users (email)", sql)
	}

	sql, _, err := CreateIndex("idx_a").On("t").Columns("a", "b").Render(SQLite)
	require.NoError(t, err)
	assert.Equal(t, "CREATE INDEX idx_a ON t (a, b)", sql)

	_, _, err = CreateIndex("idx").Columns("a").Render(SQLite)
	assert.True(t, errors.Is(err, ErrIllegalArgument))
	_, _, err = CreateIndex("idx").On("t").Render(SQLite)
	assert.True(t, errors.Is(err, ErrEmptyValues))
}

func TestCreateView(t *testing.T) {
	t.Run("OR REPLACE", func(t *testing.T) {
		b := CreateView("adults").As("SELECT id FROM users WHERE age > 18").OrReplace()
		_, _, err := b.Render(SQLite)
		assert.True(t, errors.Is(err, ErrUnsupportedOperation))
		sql, _, err := b.Render(MySQL)
		require.NoError(t, err)
		assert.Equal(t, "CREATE OR REPLACE VIEW adults AS SELECT id FROM users WHERE age > 18", sql)
	})

	t.Run("IF NOT EXISTS", func(t *testing.T) {
		b := CreateView("adults").As("SELECT id FROM users").IfNotExists()
		sql, _, err := b.Render(PostgreSQL)
		require.NoError(t, err)
		assert.Equal(t, "CREATE VIEW IF NOT EXISTS adults AS SELECT id FROM users", sql)
		sql, _, err = b.Render(MySQL)
		require.NoError(t, err)
		assert.Equal(t, "CREATE VIEW adults AS SELECT id FROM users", sql)
	})

	t.Run("select", func(t *testing.T) {
		sql, _, err := CreateView("with_email").AsSelect(Select("id").From("users").Where(IsNotNull("email"))).Render(SQLite)
		require.NoError(t, err)
		assert.Equal(t, "CREATE VIEW with_email AS SELECT id FROM users WHERE email IS NOT NULL", sql)

		_, _, err = CreateView("adults").AsSelect(Select("id").From("users").Where(Gt("age", 18))).Render(SQLite)
		assert.True(t, errors.Is(err, ErrIllegalArgument))
	})

	t.Run("没有查询", func(t *testing.T) {
		_, _, err := CreateView("v").Render(SQLite)
		assert.True(t, errors.Is(err, ErrIllegalArgument))
	})
}

func TestTruncate(t *testing.T) {
	b := Truncate("logs").RestartIdentity().Cascade()
	want := map[Dialect]string{
		PostgreSQL: "TRUNCATE TABLE logs RESTART IDENTITY CASCADE",
		MySQL:      "TRUNCATE TABLE logs",
		MariaDB:    "TRUNCATE TABLE logs",
		SQLite:     "DELETE FROM logs",
	}
	for d, sql := range want {
		got, _, err := b.Render(d)
		require.NoError(t, err)
		assert.Equal(t, sql, got, d)
	}
}

func TestDrop(t *testing.T) {
	for _, d := range allDialects {
		sql, _, err := DropTable("users").IfExists().Render(d)
		require.NoError(t, err)
		assert.Equal(t, "DROP TABLE IF EXISTS users", sql)

		sql, _, err = DropView("adults").Render(d)
		require.NoError(t, err)
		assert.Equal(t, "DROP VIEW adults", sql)
	}

	b := DropIndex("idx_users_email").IfExists().On("users")
	want := map[Dialect]string{
		SQLite:     "DROP INDEX IF EXISTS idx_users_email",
		PostgreSQL: "DROP INDEX IF EXISTS idx_users_email",
		MySQL:      "DROP INDEX idx_users_email ON users",
		MariaDB:    "DROP INDEX IF EXISTS idx_users_email ON users",
	}
	for d, sql := range want {
		got, _, err := b.Render(d)
		require.NoError(t, err)
		assert.Equal(t, sql, got, d)
	}

	_, _, err := DropIndex("idx_users_email").Render(MySQL)
	assert.True(t, errors.Is(err, ErrIllegalArgument))
}
