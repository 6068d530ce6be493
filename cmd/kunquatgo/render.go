package main

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/kunquatgo/kunquat/pkg/kunquat/device"
	"github.com/kunquatgo/kunquat/pkg/kunquat/graph"
	"github.com/kunquatgo/kunquat/pkg/kunquat/klog"
	"github.com/kunquatgo/kunquat/pkg/kunquat/player"
	"github.com/kunquatgo/kunquat/pkg/kunquat/stats"
)

func renderCommand() *cobra.Command {
	var outPath string
	var seconds float64

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the demo pattern against a composition fixture to a WAV file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(outPath, seconds)
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "out.wav", "output WAV file path")
	cmd.Flags().Float64Var(&seconds, "seconds", 4, "maximum seconds to render")
	return cmd
}

func runRender(outPath string, seconds float64) error {
	logger := klog.For("render")

	cfg, err := loadPlayerConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	comp, targetID, err := buildCompositionFromFlags(float64(cfg.AudioRateHz))
	if err != nil {
		return err
	}

	counters := stats.New(prometheus.NewRegistry(), "kunquatgo-render")
	p := player.New(comp, cfg, counters)
	p.Channels()[0].DefaultAudioUnit = int32(targetID)

	pat := syntheticPattern(flags.beats)
	p.LoadPattern(pat, 120)

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer f.Close()

	maxFrames := int(seconds * float64(cfg.AudioRateHz))
	chunk := int(cfg.BufferSizeFrames)
	left := make([]float32, chunk)
	right := make([]float32, chunk)

	var allLeft, allRight []float32
	for len(allLeft) < maxFrames {
		n, err := p.Render(left, right, chunk)
		if err != nil {
			return fmt.Errorf("rendering: %w", err)
		}
		allLeft = append(allLeft, left[:n]...)
		allRight = append(allRight, right[:n]...)
		if n < chunk {
			break
		}
	}

	if err := writeWAVHeader(f, int(cfg.AudioRateHz), len(allLeft)); err != nil {
		return fmt.Errorf("writing wav header: %w", err)
	}
	if err := writeWAVFrames(f, allLeft, allRight); err != nil {
		return fmt.Errorf("writing wav frames: %w", err)
	}

	logger.Info("rendered", "frames", len(allLeft), "out", outPath)
	return nil
}

// buildCompositionFromFlags loads the fixture named by --fixture, or the
// built-in default fixture when unset, and returns the node id the
// synthetic demo pattern should target (the first non-master node).
func buildCompositionFromFlags(audioRate float64) (*device.Composition, graph.NodeID, error) {
	var f fixture
	if flags.fixture != "" {
		comp, ids, err := loadFixture(flags.fixture, audioRate)
		if err != nil {
			return nil, 0, err
		}
		return comp, firstProcessorNode(ids), nil
	}
	f = defaultFixture()
	comp, ids, err := buildFixture(f, audioRate)
	if err != nil {
		return nil, 0, err
	}
	return comp, firstProcessorNode(ids), nil
}

// firstProcessorNode returns an arbitrary non-master node id from a
// fixture's name->id map, for pointing the synthetic demo pattern's
// single channel at something audible.
func firstProcessorNode(ids map[string]graph.NodeID) graph.NodeID {
	for name, id := range ids {
		if name != "master" {
			return id
		}
	}
	return ids["master"]
}
