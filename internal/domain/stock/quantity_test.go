package stock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKnownQuantity(t *testing.T) {
	t.Run("accepts zero and positive values", func(t *testing.T) {
		q, err := KnownQuantity(0)
		require.NoError(t, err)
		assert.True(t, q.IsKnown())

		q, err = KnownQuantity(42)
		require.NoError(t, err)
		v, ok := q.Value()
		assert.True(t, ok)
		assert.Equal(t, int64(42), v)
	})

	t.Run("rejects negative values", func(t *testing.T) {
		_, err := KnownQuantity(-1)
		assert.ErrorIs(t, err, ErrNegativeQuantity)
	})
}

func TestQuantity_UnknownIsNotZero(t *testing.T) {
	unknown := UnknownQuantity()
	zero, err := KnownQuantity(0)
	require.NoError(t, err)

	assert.False(t, unknown.IsKnown())
	assert.False(t, unknown.Equals(zero))
	assert.False(t, zero.Equals(unknown))

	_, ok := unknown.Value()
	assert.False(t, ok)
}

func TestQuantity_Equals(t *testing.T) {
	five, _ := KnownQuantity(5)
	alsoFive, _ := KnownQuantity(5)
	three, _ := KnownQuantity(3)

	assert.True(t, five.Equals(alsoFive))
	assert.False(t, five.Equals(three))

	// Unknown compares unequal even to another unknown
	assert.False(t, UnknownQuantity().Equals(UnknownQuantity()))
}

func TestQuantity_String(t *testing.T) {
	five, _ := KnownQuantity(5)
	assert.Equal(t, "5", five.String())
	assert.Equal(t, "unknown", UnknownQuantity().String())
}
