package channel_test

import (
	"testing"

	"github.com/kunquatgo/kunquat/pkg/kunquat/channel"
	"github.com/stretchr/testify/assert"
)

func TestNewChannelHasNoForegroundGroupOrAudioUnit(t *testing.T) {
	c := channel.New(3)
	assert.Equal(t, 3, c.ID)
	assert.False(t, c.HasForegroundGroup)
	assert.Equal(t, int32(-1), c.DefaultAudioUnit)
}

func TestSetAndClearForegroundGroup(t *testing.T) {
	c := channel.New(0)
	c.SetForegroundGroup(42)
	assert.True(t, c.HasForegroundGroup)
	assert.Equal(t, uint64(42), c.ForegroundGroupID)

	c.ClearForegroundGroup()
	assert.False(t, c.HasForegroundGroup)
}

func TestStartCVSlideReachesTargetAfterFrameCount(t *testing.T) {
	c := channel.New(0)
	c.SetCVImmediate("volume", 0.0)
	c.StartCVSlide("volume", 1.0, 4)

	s := c.CVSlideState("volume")
	require := assert.New(t)
	require.True(s.Active)

	var last float64
	for i := 0; i < 4; i++ {
		last = s.Advance()
	}
	require.Equal(1.0, last)
	require.False(s.Active)
}

func TestStartCVSlideWithZeroFramesAppliesImmediately(t *testing.T) {
	c := channel.New(0)
	c.StartCVSlide("pan", 0.5, 0)
	s := c.CVSlideState("pan")
	assert.False(t, s.Active)
	assert.Equal(t, 0.5, s.Current)
}

func TestSetCVImmediateCancelsInFlightSlide(t *testing.T) {
	c := channel.New(0)
	c.StartCVSlide("volume", 1.0, 100)
	require := assert.New(t)
	require.True(c.CVSlideState("volume").Active)

	c.SetCVImmediate("volume", 0.25)
	s := c.CVSlideState("volume")
	require.False(s.Active)
	require.Equal(0.25, s.Current)
}
