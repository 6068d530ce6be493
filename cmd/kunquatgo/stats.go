package main

import (
	"fmt"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/spf13/cobra"

	"github.com/kunquatgo/kunquat/pkg/kunquat/player"
	"github.com/kunquatgo/kunquat/pkg/kunquat/stats"
)

func statsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Render the demo pattern and print the resulting fault/activity counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats()
		},
	}
	return cmd
}

func runStats() error {
	cfg, err := loadPlayerConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	comp, targetID, err := buildCompositionFromFlags(float64(cfg.AudioRateHz))
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	counters := stats.New(registry, "kunquatgo-stats")
	p := player.New(comp, cfg, counters)
	p.Channels()[0].DefaultAudioUnit = int32(targetID)
	p.LoadPattern(syntheticPattern(flags.beats), 120)

	chunk := int(cfg.BufferSizeFrames)
	left := make([]float32, chunk)
	right := make([]float32, chunk)
	for {
		n, err := p.Render(left, right, chunk)
		if err != nil {
			return fmt.Errorf("rendering: %w", err)
		}
		if n < chunk {
			break
		}
	}

	families, err := registry.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}
	printMetricFamilies(families)
	return nil
}

func printMetricFamilies(families []*dto.MetricFamily) {
	sort.Slice(families, func(i, j int) bool {
		return families[i].GetName() < families[j].GetName()
	})
	for _, fam := range families {
		for _, m := range fam.GetMetric() {
			value := 0.0
			switch {
			case m.GetCounter() != nil:
				value = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				value = m.GetGauge().GetValue()
			}
			fmt.Printf("%s %g\n", fam.GetName(), value)
		}
	}
}
