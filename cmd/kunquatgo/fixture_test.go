package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kunquatgo/kunquat/pkg/kunquat/graph"
)

func TestDefaultFixtureBuildsOneVoiceToMaster(t *testing.T) {
	comp, ids, err := buildFixture(defaultFixture(), 48000)
	require.NoError(t, err)
	require.Contains(t, ids, "master")
	require.Contains(t, ids, "osc")
	require.NotNil(t, comp.VoicePlan)
	require.NotNil(t, comp.MixedPlan)

	_, ok := comp.ProcessorAt(ids["osc"])
	require.True(t, ok)
}

func TestFirstProcessorNodeSkipsMaster(t *testing.T) {
	ids := map[string]graph.NodeID{"master": 0, "osc": 1}
	require.Equal(t, graph.NodeID(1), firstProcessorNode(ids))
}

func TestFirstProcessorNodeFallsBackToMasterWhenNoOtherNodes(t *testing.T) {
	ids := map[string]graph.NodeID{"master": 7}
	require.Equal(t, graph.NodeID(7), firstProcessorNode(ids))
}

func TestLoadFixtureRejectsUnknownProcessorKind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"nodes":[{"name":"x","kind":"nonexistent"}],"edges":[]}`), 0o644))

	_, _, err := loadFixture(path, 48000)
	require.Error(t, err)
}

func TestLoadFixtureRejectsUnknownEdgeEndpoint(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad_edge.json")
	require.NoError(t, os.WriteFile(path, []byte(
		`{"nodes":[{"name":"osc","kind":"additive"}],"edges":[{"src":"osc","dst":"nope"}]}`,
	), 0o644))

	_, _, err := loadFixture(path, 48000)
	require.Error(t, err)
}

func TestLoadFixtureBuildsMultiNodeGraph(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chain.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"nodes": [
			{"name": "osc", "kind": "additive"},
			{"name": "flt", "kind": "filter"}
		],
		"edges": [
			{"src": "osc", "src_port": 0, "dst": "flt", "dst_port": 0},
			{"src": "flt", "src_port": 0, "dst": "master", "dst_port": 0}
		]
	}`), 0o644))

	comp, ids, err := loadFixture(path, 48000)
	require.NoError(t, err)
	require.Len(t, ids, 3) // osc, flt, master
	require.NotNil(t, comp.MixedPlan)
}

func TestSyntheticPatternProducesOneNoteOnOffPairPerBeat(t *testing.T) {
	pat := syntheticPattern(4)
	require.Len(t, pat.Columns, 1)
	require.Len(t, pat.Columns[0].Events, 8) // 4 NoteOn + 4 NoteOff
}
