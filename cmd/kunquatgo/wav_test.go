package main

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteWAVHeaderLayout(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeWAVHeader(&buf, 48000, 100))

	hdr := buf.Bytes()
	require.Len(t, hdr, 44)
	require.Equal(t, "RIFF", string(hdr[0:4]))
	require.Equal(t, "WAVE", string(hdr[8:12]))
	require.Equal(t, "fmt ", string(hdr[12:16]))
	require.Equal(t, "data", string(hdr[36:40]))
	require.Equal(t, uint32(48000), binary.LittleEndian.Uint32(hdr[24:28]))
	require.Equal(t, uint16(2), binary.LittleEndian.Uint16(hdr[22:24]))
	require.Equal(t, uint16(16), binary.LittleEndian.Uint16(hdr[34:36]))
	require.Equal(t, uint32(100*2*2), binary.LittleEndian.Uint32(hdr[40:44]))
}

func TestWriteWAVFramesInterleavesAndClamps(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeWAVFrames(&buf, []float32{1.0, -2.0}, []float32{0.5, 0}))

	data := buf.Bytes()
	require.Len(t, data, 8)
	left0 := int16(binary.LittleEndian.Uint16(data[0:2]))
	right0 := int16(binary.LittleEndian.Uint16(data[2:4]))
	left1 := int16(binary.LittleEndian.Uint16(data[4:6]))
	require.Equal(t, int16(32767), left0)
	require.Greater(t, right0, int16(0))
	require.Equal(t, int16(-32768), left1)
}
