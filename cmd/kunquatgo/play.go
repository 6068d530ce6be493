package main

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"

	oto "github.com/ebitengine/oto/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/kunquatgo/kunquat/pkg/kunquat/klog"
	"github.com/kunquatgo/kunquat/pkg/kunquat/player"
	"github.com/kunquatgo/kunquat/pkg/kunquat/stats"
)

func playCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Drive the demo pattern against a composition fixture on the default audio device",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay()
		},
	}
	return cmd
}

func runPlay() error {
	logger := klog.For("play")

	cfg, err := loadPlayerConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	comp, targetID, err := buildCompositionFromFlags(float64(cfg.AudioRateHz))
	if err != nil {
		return err
	}

	counters := stats.New(prometheus.NewRegistry(), "kunquatgo-play")
	p := player.New(comp, cfg, counters)
	p.Channels()[0].DefaultAudioUnit = int32(targetID)
	p.LoadPattern(syntheticPattern(flags.beats), 120)

	otoCtx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   int(cfg.AudioRateHz),
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
	})
	if err != nil {
		return fmt.Errorf("opening audio device: %w", err)
	}
	<-ready

	src := &renderStream{player: p, chunk: int(cfg.BufferSizeFrames)}
	otoPlayer := otoCtx.NewPlayer(src)
	otoPlayer.Play()
	defer otoPlayer.Close()

	logger.Info("playing", "beats", flags.beats, "audio_rate_hz", cfg.AudioRateHz)
	for !src.done {
		time.Sleep(100 * time.Millisecond)
	}
	for otoPlayer.IsPlaying() {
		time.Sleep(100 * time.Millisecond)
	}
	return nil
}

// renderStream adapts Player.Render to the io.Reader oto.Context.NewPlayer
// pulls interleaved float32LE frames from.
type renderStream struct {
	player *player.Player
	chunk  int
	left   []float32
	right  []float32
	done   bool
}

func (s *renderStream) Read(buf []byte) (int, error) {
	if s.done {
		return 0, io.EOF
	}
	if s.left == nil {
		s.left = make([]float32, s.chunk)
		s.right = make([]float32, s.chunk)
	}

	framesWanted := len(buf) / 8 // 2 channels * 4 bytes/float32
	if framesWanted > s.chunk {
		framesWanted = s.chunk
	}
	if framesWanted == 0 {
		return 0, nil
	}

	n, err := s.player.Render(s.left, s.right, framesWanted)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		s.done = true
		return 0, io.EOF
	}

	written := 0
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint32(buf[written:], math.Float32bits(s.left[i]))
		written += 4
		binary.LittleEndian.PutUint32(buf[written:], math.Float32bits(s.right[i]))
		written += 4
	}
	if n < framesWanted {
		s.done = true
	}
	return written, nil
}
