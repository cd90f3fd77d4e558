package convert

import (
	"math"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Color string

const (
	Red  Color = "red"
	Blue Color = "blue"
)

// Level 通过文本编解码的枚举
type Level int

func (l Level) MarshalText() ([]byte, error) {
	return []byte([]string{"low", "high"}[l]), nil
}

func (l *Level) UnmarshalText(b []byte) error {
	switch string(b) {
	case "low":
		*l = 0
	case "high":
		*l = 1
	default:
		return errors.Errorf("unknown level %q", b)
	}
	return nil
}

type Celsius float64

type unknown struct{ A int }

func TestSQLTypeFor(t *testing.T) {
	r := Default
	tests := []struct {
		v    any
		want string
	}{
		{"", "TEXT"},
		{0, "INTEGER"},
		{int32(0), "INTEGER"},
		{int64(0), "BIGINT"},
		{uint64(0), "BIGINT"},
		{true, "BOOLEAN"},
		{0.0, "DOUBLE"},
		{float32(0), "FLOAT"},
		{time.Time{}, "DATETIME"},
		{&time.Time{}, "DATETIME"},
		{decimal.Decimal{}, "DECIMAL(18,6)"},
		{[]byte{}, "BLOB"},
		{Red, "VARCHAR(100)"},
		{Level(0), "VARCHAR(100)"},
		{uuid.UUID{}, "TEXT"},
		{Celsius(0), "DOUBLE"},
		{Date{}, "DATE"},
		{DateTime{}, "DATETIME"},
		{JSON[map[string]any]{}, "TEXT"},
		{NullString(""), "TEXT"},
	}
	for _, tt := range tests {
		got, err := r.SQLTypeFor(reflect.TypeOf(tt.v))
		require.NoError(t, err, "%T", tt.v)
		assert.Equal(t, tt.want, got, "%T", tt.v)
	}

	_, err := r.SQLTypeFor(reflect.TypeOf(unknown{}))
	assert.True(t, errors.Is(err, ErrUnsupportedType))
	_, err = r.SQLTypeFor(reflect.TypeOf(map[string]int{}))
	assert.True(t, errors.Is(err, ErrUnsupportedType))
}

// roundTrip 写入再读回, 值不变
func roundTrip(t *testing.T, r *Registry, v any) any {
	t.Helper()
	stored, err := r.ToStored(v)
	require.NoError(t, err, "%T", v)
	back, err := r.FromStored(stored, reflect.TypeOf(v))
	require.NoError(t, err, "%T", v)
	return back
}

func TestRoundTrip(t *testing.T) {
	r := Default
	now := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	for _, v := range []any{
		"ann", 42, int8(-3), int64(1 << 40), uint16(9), true, 1.25, float32(0.5),
		now, []byte("raw"), Red, Level(1), uuid.New(), Celsius(36.6),
	} {
		assert.Equal(t, v, roundTrip(t, r, v), "%T", v)
	}

	d, _ := decimal.NewFromString("12.345")
	assert.True(t, d.Equal(roundTrip(t, r, d).(decimal.Decimal)))
}

func TestToStored(t *testing.T) {
	r := Default
	cases := []struct {
		v    any
		want any
	}{
		{nil, nil},
		{(*int)(nil), nil},
		{Red, "red"},
		{Level(1), "high"},
		{uint32(7), int64(7)},
		{decimal.New(150, -2), "1.5"},
		{JSON[[]int]{Data: []int{1, 2}}, "[1,2]"},
	}
	for _, c := range cases {
		got, err := r.ToStored(c.v)
		require.NoError(t, err)
		assert.Equal(t, c.want, got, "%T", c.v)
	}

	n := 5
	got, err := r.ToStored(&n)
	require.NoError(t, err)
	assert.Equal(t, int64(5), got)

	_, err = r.ToStored(unknown{})
	assert.True(t, errors.Is(err, ErrUnsupportedType))
	_, err = r.ToStored(uint64(1 << 63))
	assert.Error(t, err)
}

func TestFromStored(t *testing.T) {
	r := Default

	t.Run("driver 返回的不同类型", func(t *testing.T) {
		v, err := r.FromStored([]byte("17"), reflect.TypeOf(0))
		require.NoError(t, err)
		assert.Equal(t, 17, v)

		v, err = r.FromStored(int64(1), reflect.TypeOf(true))
		require.NoError(t, err)
		assert.Equal(t, true, v)

		v, err = r.FromStored("2024-05-06 07:08:09", reflect.TypeOf(time.Time{}))
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC), v)

		v, err = r.FromStored(2.5, reflect.TypeOf(decimal.Decimal{}))
		require.NoError(t, err)
		assert.Equal(t, "2.5", v.(decimal.Decimal).String())

		v, err = r.FromStored("010", reflect.TypeOf(0))
		require.NoError(t, err)
		assert.Equal(t, 10, v)

		v, err = r.FromStored(float64(42), reflect.TypeOf(int64(0)))
		require.NoError(t, err)
		assert.Equal(t, int64(42), v)

		v, err = r.FromStored([]byte("18446744073709551615"), reflect.TypeOf(uint64(0)))
		require.NoError(t, err)
		assert.Equal(t, uint64(math.MaxUint64), v)

		for _, raw := range []any{"0x1F", "1_000", 3.7, []byte("0b11")} {
			_, err = r.FromStored(raw, reflect.TypeOf(int64(0)))
			assert.Error(t, err, "%v", raw)
		}
		_, err = r.FromStored("-1", reflect.TypeOf(uint(0)))
		assert.Error(t, err)
	})

	t.Run("NULL", func(t *testing.T) {
		v, err := r.FromStored(nil, reflect.TypeOf(""))
		require.NoError(t, err)
		assert.Equal(t, "", v)

		v, err = r.FromStored(nil, reflect.TypeOf((*int)(nil)))
		require.NoError(t, err)
		assert.Nil(t, v.(*int))

		v, err = r.FromStored(int64(3), reflect.TypeOf((*int)(nil)))
		require.NoError(t, err)
		assert.Equal(t, 3, *v.(*int))
	})

	t.Run("溢出", func(t *testing.T) {
		_, err := r.FromStored(int64(300), reflect.TypeOf(int8(0)))
		assert.Error(t, err)
		_, err = r.FromStored(int64(-1), reflect.TypeOf(uint(0)))
		assert.Error(t, err)
	})

	t.Run("非法枚举值", func(t *testing.T) {
		_, err := r.FromStored("middle", reflect.TypeOf(Level(0)))
		assert.Error(t, err)
	})

	t.Run("Scanner", func(t *testing.T) {
		v, err := r.FromStored(`{"a":1}`, reflect.TypeOf(JSON[map[string]int]{}))
		require.NoError(t, err)
		assert.Equal(t, map[string]int{"a": 1}, v.(JSON[map[string]int]).Data)

		v, err = r.FromStored("2024-05-06", reflect.TypeOf(Date{}))
		require.NoError(t, err)
		assert.Equal(t, "2024-05-06", v.(Date).Time().Format(time.DateOnly))
	})

	t.Run("uuid", func(t *testing.T) {
		id := uuid.New()
		v, err := r.FromStored(id[:], reflect.TypeOf(uuid.UUID{}))
		require.NoError(t, err)
		assert.Equal(t, id, v)
		_, err = r.FromStored("not-a-uuid", reflect.TypeOf(uuid.UUID{}))
		assert.Error(t, err)
	})
}

type Money int64

func TestRegisterOverride(t *testing.T) {
	r := NewRegistry()
	RegisterType[Money](r, Func{Type: "BIGINT"})
	got, err := r.SQLTypeFor(reflect.TypeOf(Money(0)))
	require.NoError(t, err)
	assert.Equal(t, "BIGINT", got)

	r.Register(reflect.TypeOf(Money(0)), Func{
		Type: "TEXT",
		To: func(v any) (any, error) {
			return strings.Repeat("$", int(v.(Money))), nil
		},
		From: func(raw any) (any, error) {
			return Money(len(raw.(string))), nil
		},
	})
	got, err = r.SQLTypeFor(reflect.TypeOf(Money(0)))
	require.NoError(t, err)
	assert.Equal(t, "TEXT", got)
	assert.Equal(t, Money(3), roundTrip(t, r, Money(3)))

	// 转换器返回可转换的类型
	r.Register(reflect.TypeOf(Money(0)), Func{Type: "BIGINT", From: func(raw any) (any, error) { return raw, nil }})
	v, err := r.FromStored(int64(8), reflect.TypeOf(Money(0)))
	require.NoError(t, err)
	assert.Equal(t, Money(8), v)
}
