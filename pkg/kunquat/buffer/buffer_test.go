package buffer_test

import (
	"testing"

	"github.com/kunquatgo/kunquat/pkg/kunquat/buffer"
	"github.com/stretchr/testify/assert"
)

func TestClearMarksValidAndConstant(t *testing.T) {
	b := buffer.New(8)
	b.Clear(0, 8)
	assert.True(t, b.IsValid())
	assert.Equal(t, int32(0), b.ConstFrom())
	for _, v := range b.Raw() {
		assert.Equal(t, float32(0), v)
	}
}

func TestMixFromAdds(t *testing.T) {
	a := buffer.New(4)
	b := buffer.New(4)
	a.Clear(0, 4)
	b.Clear(0, 4)
	copy(a.Raw(), []float32{1, 2, 3, 4})
	copy(b.Raw(), []float32{10, 10, 10, 10})

	a.MixFrom(b, 0, 4)
	assert.Equal(t, []float32{11, 12, 13, 14}, a.Raw())
}

func TestInvalidateResetsConstFrom(t *testing.T) {
	b := buffer.New(4)
	b.Clear(0, 4)
	b.Invalidate()
	assert.False(t, b.IsValid())
	assert.Equal(t, int32(4), b.ConstFrom())
}

func TestMixFromSkipsInvalidSource(t *testing.T) {
	a := buffer.New(4)
	a.Clear(0, 4)
	copy(a.Raw(), []float32{1, 1, 1, 1})
	src := buffer.New(4) // never cleared -> invalid
	a.MixFrom(src, 0, 4)
	assert.Equal(t, []float32{1, 1, 1, 1}, a.Raw())
}
