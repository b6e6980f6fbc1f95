// pkg/normalizer/coerce_test.go
package normalizer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsNull(t *testing.T) {
	assert.True(t, isNull(nil))
	assert.True(t, isNull(""))
	assert.True(t, isNull("  "))
	assert.True(t, isNull("null"))
	assert.True(t, isNull("NULL"))
	assert.True(t, isNull("NaN"))
	assert.True(t, isNull(math.NaN()))
	assert.True(t, isNull(math.Inf(1)))

	assert.False(t, isNull("0"))
	assert.False(t, isNull(float64(0)))
	assert.False(t, isNull(false))
}

func TestCoerceInt(t *testing.T) {
	for _, tc := range []struct {
		in   interface{}
		want int64
	}{
		{"42", 42},
		{"10001.0", 10001},
		{" 7 ", 7},
		{float64(3.9), 3},
		{int64(5), 5},
		{true, 1},
		{false, 0},
	} {
		got, err := coerceInt(tc.in)
		require.NoError(t, err, "input %v", tc.in)
		assert.Equal(t, tc.want, got, "input %v", tc.in)
	}

	_, err := coerceInt("abc")
	assert.Error(t, err)
	_, err = coerceInt(struct{}{})
	assert.Error(t, err)
}

func TestCoerceFloat(t *testing.T) {
	got, err := coerceFloat("2.5")
	require.NoError(t, err)
	assert.Equal(t, 2.5, got)

	got, err = coerceFloat(int64(4))
	require.NoError(t, err)
	assert.Equal(t, 4.0, got)

	_, err = coerceFloat("4,5")
	assert.Error(t, err)
}

func TestCoerceText(t *testing.T) {
	assert.Equal(t, "hi", coerceText("  hi "))
	assert.Equal(t, "10001", coerceText(float64(10001)))
	assert.Equal(t, "2.5", coerceText(float64(2.5)))
	assert.Equal(t, "9", coerceText(int64(9)))
	assert.Equal(t, "true", coerceText(true))
}

func TestCoerceBool(t *testing.T) {
	for _, v := range []interface{}{"true", "T", "yes", "Y", "1", "on", float64(1), int64(2), true} {
		got, err := coerceBool(v)
		require.NoError(t, err, "input %v", v)
		assert.True(t, got, "input %v", v)
	}

	for _, v := range []interface{}{"false", "no", "0", "off", "", float64(0), false} {
		got, err := coerceBool(v)
		require.NoError(t, err, "input %v", v)
		assert.False(t, got, "input %v", v)
	}

	_, err := coerceBool("maybe")
	assert.Error(t, err)
}
