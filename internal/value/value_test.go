package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestKindFromString(t *testing.T) {
	t.Run("accepts every declared kind", func(t *testing.T) {
		for _, s := range []string{"text", "number", "date", "bool", "reference", "collection"} {
			k, err := KindFromString(s)
			require.NoError(t, err)
			assert.Equal(t, Kind(s), k)
		}
	})

	t.Run("rejects unknown kinds", func(t *testing.T) {
		_, err := KindFromString("float")
		assert.ErrorContains(t, err, "unknown field kind")
	})
}

func TestKindConvert(t *testing.T) {
	t.Run("number accepts numeric strings", func(t *testing.T) {
		v, err := Number.Convert(cty.StringVal("42"))
		require.NoError(t, err)
		assert.True(t, v.RawEquals(cty.NumberIntVal(42)))
	})

	t.Run("number rejects non-numeric text", func(t *testing.T) {
		_, err := Number.Convert(cty.StringVal("forty-two"))
		assert.ErrorContains(t, err, "cannot use")
	})

	t.Run("date enforces the canonical layout", func(t *testing.T) {
		v, err := Date.Convert(cty.StringVal("2024-02-29"))
		require.NoError(t, err)
		assert.Equal(t, "2024-02-29", v.AsString())

		_, err = Date.Convert(cty.StringVal("29/02/2024"))
		assert.ErrorContains(t, err, "invalid date")
	})

	t.Run("null passes through", func(t *testing.T) {
		v, err := Date.Convert(cty.NullVal(cty.String))
		require.NoError(t, err)
		assert.True(t, v.IsNull())
	})

	t.Run("collection accepts tuples unchanged", func(t *testing.T) {
		tup := cty.TupleVal([]cty.Value{cty.StringVal("a"), cty.NumberIntVal(1)})
		v, err := Collection.Convert(tup)
		require.NoError(t, err)
		assert.True(t, v.RawEquals(tup))
	})
}

func TestErrorVal(t *testing.T) {
	ev := ErrorVal(cty.Number, "division by zero")

	assert.True(t, IsError(ev))
	msg, ok := ErrorMessage(ev)
	require.True(t, ok)
	assert.Equal(t, "division by zero", msg)

	t.Run("ordinary values are not errors", func(t *testing.T) {
		assert.False(t, IsError(cty.NumberIntVal(1)))
		assert.False(t, IsError(cty.NullVal(cty.String)))
	})

	t.Run("mark survives arithmetic", func(t *testing.T) {
		sum := ev.Add(cty.NumberIntVal(1))
		assert.True(t, IsError(sum))
	})
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(cty.NumberIntVal(2), cty.NumberIntVal(2)))
	assert.False(t, Equal(cty.NumberIntVal(2), cty.NumberIntVal(3)))

	t.Run("marks are ignored", func(t *testing.T) {
		assert.True(t, Equal(cty.StringVal("x").Mark("m"), cty.StringVal("x")))
	})

	t.Run("error values never converge", func(t *testing.T) {
		ev := ErrorVal(cty.Number, "boom")
		assert.False(t, Equal(ev, ev))
		assert.False(t, Equal(ev, cty.NumberIntVal(1)))
	})
}
