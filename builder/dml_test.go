package builder

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsert(t *testing.T) {
	for _, d := range allDialects {
		sql, args, err := Insert("users").Value("id", 1).Value("name", "Ann").Render(d)
		require.NoError(t, err)
		assert.Equal(t, "INSERT INTO users (id, name) VALUES (?, ?)", sql)
		assert.Equal(t, []any{1, "Ann"}, args)
	}

	t.Run("重复设置覆盖原值", func(t *testing.T) {
		sql, args, err := Insert("users").Value("id", 1).Value("name", "Ann").Value("id", 2).Render(MySQL)
		require.NoError(t, err)
		assert.Equal(t, "INSERT INTO users (id, name) VALUES (?, ?)", sql)
		assert.Equal(t, []any{2, "Ann"}, args)
	})

	t.Run("map 按列名排序", func(t *testing.T) {
		sql, args, err := Insert("users").Values(map[string]any{"name": "Ann", "age": 3, "id": 1}).Render(MySQL)
		require.NoError(t, err)
		assert.Equal(t, "INSERT INTO users (age, id, name) VALUES (?, ?, ?)", sql)
		assert.Equal(t, []any{3, 1, "Ann"}, args)
	})

	t.Run("没有值", func(t *testing.T) {
		_, _, err := Insert("users").Render(MySQL)
		assert.True(t, errors.Is(err, ErrEmptyValues))
	})

	t.Run("非法列名", func(t *testing.T) {
		_, _, err := Insert("users").Value("name)", 1).Render(MySQL)
		assert.True(t, errors.Is(err, ErrIllegalIdentifier))
	})
}

func TestUpsert(t *testing.T) {
	t.Run("SQLite/PostgreSQL 需要冲突键", func(t *testing.T) {
		for _, d := range []Dialect{SQLite, PostgreSQL} {
			_, _, err := Upsert("users").Value("id", 1).Value("name", "Ann").Render(d)
			assert.True(t, errors.Is(err, ErrUpsertNoKeys), d)

			sql, args, err := Upsert("users").Value("id", 1).Value("name", "Ann").Value("age", 3).
				ConflictKeys("id").Render(d)
			require.NoError(t, err)
			assert.Equal(t, "INSERT INTO users (id, name, age) VALUES (?, ?, ?) "+
				"ON CONFLICT(id) DO UPDATE SET name = excluded.name, age = excluded.age", sql)
			assert.Equal(t, []any{1, "Ann", 3}, args)
		}
	})

	t.Run("只有冲突键时 DO NOTHING", func(t *testing.T) {
		sql, _, err := Upsert("tags").Value("post_id", 1).Value("tag", "go").ConflictKeys("post_id", "tag").Render(SQLite)
		require.NoError(t, err)
		assert.Equal(t, "INSERT INTO tags (post_id, tag) VALUES (?, ?) ON CONFLICT(post_id, tag) DO NOTHING", sql)
	})

	t.Run("MySQL/MariaDB 不引用冲突键", func(t *testing.T) {
		for _, d := range []Dialect{MySQL, MariaDB} {
			sql, args, err := Upsert("users").Value("id", 1).Value("name", "Ann").Render(d)
			require.NoError(t, err)
			assert.Equal(t, "INSERT INTO users (id, name) VALUES (?, ?) "+
				"ON DUPLICATE KEY UPDATE id = VALUES(id), name = VALUES(name)", sql)
			assert.Equal(t, []any{1, "Ann"}, args)

			sql, _, err = Upsert("users").Value("id", 1).Value("name", "Ann").ConflictKeys("id").Render(d)
			require.NoError(t, err)
			assert.Equal(t, "INSERT INTO users (id, name) VALUES (?, ?) ON DUPLICATE KEY UPDATE name = VALUES(name)", sql)
			assert.NotContains(t, sql, "CONFLICT")
		}
	})
}

func TestUpdate(t *testing.T) {
	sql, args, err := Update("account").
		Set("name", "Ann").
		SetExpr("amount", SetExpr("amount - ?", 2)).
		Where(Eq("id", 9)).
		Render(PostgreSQL)
	require.NoError(t, err)
	assert.Equal(t, "UPDATE account SET name = ?, amount = amount - ? WHERE id = ?", sql)
	assert.Equal(t, []any{"Ann", 2, 9}, args)

	t.Run("不带条件", func(t *testing.T) {
		sql, _, err := Update("account").Set("state", 0).Render(MySQL)
		require.NoError(t, err)
		assert.Equal(t, "UPDATE account SET state = ?", sql)
	})

	t.Run("没有 SET", func(t *testing.T) {
		_, _, err := Update("account").Where(Eq("id", 1)).Render(MySQL)
		assert.True(t, errors.Is(err, ErrEmptyValues))
	})

	t.Run("表达式参数不一致", func(t *testing.T) {
		_, _, err := Update("account").SetExpr("amount", SetExpr("amount - ?")).Render(MySQL)
		assert.True(t, errors.Is(err, ErrParameterMismatch))
	})

	t.Run("条件错误", func(t *testing.T) {
		_, _, err := Update("account").Set("a", 1).Where(In("id")).Render(MySQL)
		assert.True(t, errors.Is(err, ErrEmptyValues))
	})
}

func TestDelete(t *testing.T) {
	sql, args, err := Delete("users").Where(Eq("id", 1), Like("name", "a%")).Render(SQLite)
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM users WHERE id = ? AND name LIKE ?", sql)
	assert.Equal(t, []any{1, "a%"}, args)

	sql, args, err = Delete("users").Render(SQLite)
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM users", sql)
	assert.Empty(t, args)
}

func TestRawSQL(t *testing.T) {
	sql, args, err := Render(PostgreSQL, RawSQL("SELECT * FROM users WHERE name = ? AND note <> '?'", "Ann"))
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM users WHERE name = $1 AND note <> '?'", sql)
	assert.Equal(t, []any{"Ann"}, args)

	_, _, err = Render(MySQL, RawSQL(""))
	assert.True(t, errors.Is(err, ErrIllegalArgument))
	_, _, err = Render(MySQL, RawSQL("DELETE FROM users WHERE id = ?"))
	assert.True(t, errors.Is(err, ErrParameterMismatch))
}
