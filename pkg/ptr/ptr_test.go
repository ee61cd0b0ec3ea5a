package ptr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringOr(t *testing.T) {
	assert.Equal(t, "null", StringOr(nil, "null"))
	assert.Equal(t, "null", StringOr(To(""), "null"))
	assert.Equal(t, "order-1", StringOr(To("order-1"), "null"))
}

func TestDeref(t *testing.T) {
	assert.Equal(t, 3, Deref(To(3), 0))
	assert.Equal(t, 7, Deref[int](nil, 7))
}
