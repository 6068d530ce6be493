package main

import (
	"encoding/binary"
	"io"
)

// writeWAVHeader writes a canonical 16-bit PCM stereo RIFF/WAVE header for
// numFrames frames at sampleRate, mirroring the chunk layout a WAV reader
// parses (RIFF size, WAVE, fmt, data), just written instead of parsed.
func writeWAVHeader(w io.Writer, sampleRate int, numFrames int) error {
	const (
		numChannels   = 2
		bitsPerSample = 16
	)
	dataSize := uint32(numFrames * numChannels * (bitsPerSample / 8))
	byteRate := uint32(sampleRate * numChannels * (bitsPerSample / 8))
	blockAlign := uint16(numChannels * (bitsPerSample / 8))

	var hdr [44]byte
	copy(hdr[0:4], "RIFF")
	binary.LittleEndian.PutUint32(hdr[4:8], 36+dataSize)
	copy(hdr[8:12], "WAVE")
	copy(hdr[12:16], "fmt ")
	binary.LittleEndian.PutUint32(hdr[16:20], 16) // fmt chunk size
	binary.LittleEndian.PutUint16(hdr[20:22], 1)  // PCM
	binary.LittleEndian.PutUint16(hdr[22:24], numChannels)
	binary.LittleEndian.PutUint32(hdr[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(hdr[28:32], byteRate)
	binary.LittleEndian.PutUint16(hdr[32:34], blockAlign)
	binary.LittleEndian.PutUint16(hdr[34:36], bitsPerSample)
	copy(hdr[36:40], "data")
	binary.LittleEndian.PutUint32(hdr[40:44], dataSize)

	_, err := w.Write(hdr[:])
	return err
}

// writeWAVFrames appends interleaved left/right float32 samples to w as
// signed 16-bit little-endian PCM, clamping to the representable range.
func writeWAVFrames(w io.Writer, left, right []float32) error {
	buf := make([]byte, len(left)*4)
	for i := range left {
		buf[i*4], buf[i*4+1] = int16Bytes(left[i])
		buf[i*4+2], buf[i*4+3] = int16Bytes(right[i])
	}
	_, err := w.Write(buf)
	return err
}

func int16Bytes(sample float32) (byte, byte) {
	v := sample * 32767.0
	switch {
	case v > 32767:
		v = 32767
	case v < -32768:
		v = -32768
	}
	s := int16(v)
	return byte(s), byte(s >> 8)
}
