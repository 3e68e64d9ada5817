package config

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	msx "github.com/wippyai/msx-toolkit"
	"github.com/wippyai/msx-toolkit/errors"
)

const fullRunFile = `
engine:
  backend: wasm
  module: epanetmsx.wasm
  fs_root: ./data
  memory_limit_pages: 512
log:
  level: debug
  format: json
project:
  input: net1.msx
  hydraulics: net1.hyd
  save_scratch: true
  mode: solve
  output: net1.out
  save_project: net1-copy.msx
  report: true
overrides:
  constants:
    - {name: K1, value: 0.5}
  parameters:
    - {element: LINK, index: 3, name: kb, value: 1.2}
  init_quality:
    - {element: MSX_NODE, index: 10, species: AS3, value: 1.0}
  patterns:
    - {name: PAT1, multipliers: [1, 0.5], create: true}
  sources:
    - {node: 10, species: AS3, type: setpoint, level: 1.0, pattern: PAT1}
watch:
  - {element: 1, index: 2, species: AS3}
  - {index: 2, species: NH2CL}
`

func TestParse_Full(t *testing.T) {
	c, err := Parse([]byte(fullRunFile))
	require.NoError(t, err)

	assert.Equal(t, BackendWasm, c.Engine.Backend)
	assert.Equal(t, "epanetmsx.wasm", c.Engine.Module)
	assert.Equal(t, "./data", c.Engine.FSRoot)
	assert.Equal(t, uint32(512), c.Engine.MemoryLimitPages)
	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, FormatJSON, c.Log.Format)

	assert.Equal(t, "net1.hyd", c.Project.Hydraulics)
	assert.False(t, c.Project.SolveHydraulics)
	assert.True(t, c.Project.SaveScratch)
	assert.Equal(t, ModeSolve, c.Project.Mode)
	assert.True(t, c.Project.Report)

	require.Len(t, c.Overrides.Parameters, 1)
	assert.Equal(t, msx.Link, c.Overrides.Parameters[0].Type)
	assert.Equal(t, 3, c.Overrides.Parameters[0].Index)

	require.Len(t, c.Overrides.InitQuality, 1)
	assert.Equal(t, msx.Node, c.Overrides.InitQuality[0].Type)
	assert.Equal(t, 10, c.Overrides.InitQuality[0].Index)

	require.Len(t, c.Overrides.Patterns, 1)
	assert.Equal(t, []float64{1, 0.5}, c.Overrides.Patterns[0].Multipliers)
	assert.True(t, c.Overrides.Patterns[0].Create)

	require.Len(t, c.Overrides.Sources, 1)
	assert.Equal(t, msx.Setpoint, c.Overrides.Sources[0].Type)
	assert.Equal(t, "PAT1", c.Overrides.Sources[0].Pattern)

	require.Len(t, c.Watch, 2)
	assert.Equal(t, msx.Link, c.Watch[0].Type)
	assert.Equal(t, msx.Node, c.Watch[1].Type)
}

func TestParse_Defaults(t *testing.T) {
	c, err := Parse([]byte("project:\n  input: net1.msx\n"))
	require.NoError(t, err)

	assert.Equal(t, BackendNative, c.Engine.Backend)
	assert.Equal(t, DefaultLibrary(), c.Engine.Library)
	assert.Equal(t, ".", c.Engine.FSRoot)
	assert.Equal(t, "info", c.Log.Level)
	assert.Equal(t, "", c.Log.Format)
	assert.Equal(t, ModeStep, c.Project.Mode)
	assert.True(t, c.Project.SolveHydraulics)
	assert.False(t, c.Project.SaveScratch)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		yaml  string
		field string
	}{
		{"empty", "", "project.input"},
		{"backend", "engine: {backend: python}\nproject: {input: a.msx}", "engine.backend"},
		{"wasm without module", "engine: {backend: wasm}\nproject: {input: a.msx}", "engine.module"},
		{"log level", "log: {level: loud}\nproject: {input: a.msx}", "log.level"},
		{"log format", "log: {format: xml}\nproject: {input: a.msx}", "log.format"},
		{"mode", "project: {input: a.msx, mode: fast}", "project.mode"},
		{"both hydraulics", "project: {input: a.msx, hydraulics: a.hyd, solve_hydraulics: true}", "project.hydraulics"},
		{"constant name", "project: {input: a.msx}\noverrides: {constants: [{value: 1}]}", "overrides.constants[0].name"},
		{"tank parameter", "project: {input: a.msx}\noverrides: {parameters: [{element: TANK, index: 1, name: k}]}", "overrides.parameters[0].element"},
		{"no element ref", "project: {input: a.msx}\noverrides: {init_quality: [{species: CL2}]}", "overrides.init_quality[0].index"},
		{"no source node", "project: {input: a.msx}\noverrides: {sources: [{species: CL2}]}", "overrides.sources[0].node"},
		{"pattern without values", "project: {input: a.msx}\noverrides: {patterns: [{name: P}]}", "overrides.patterns[0].multipliers"},
		{"source species", "project: {input: a.msx}\noverrides: {sources: [{node: 1}]}", "overrides.sources[0].species"},
		{"negative index", "project: {input: a.msx}\nwatch: [{index: -2, species: CL2}]", "watch[0].index"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			require.Error(t, err)

			var e *errors.Error
			require.True(t, stderrors.As(err, &e), "got %T", err)
			assert.Equal(t, errors.PhaseConfig, e.Phase)
			assert.Equal(t, errors.KindInvalidInput, e.Kind)
			assert.Equal(t, tc.field, e.Op)
		})
	}
}

func TestParse_DecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown key", "project: {input: a.msx, inptu: b.msx}"},
		{"bad element", "project: {input: a.msx}\nwatch: [{element: VALVE, index: 1, species: CL2}]"},
		{"bad source type", "project: {input: a.msx}\noverrides: {sources: [{node: 1, species: CL2, type: 9}]}"},
		{"syntax", "project: [input"},
		{"node by id", "project: {input: a.msx}\nwatch: [{element: NODE, id: \"10\", species: CL2}]"},
		{"source by node id", "project: {input: a.msx}\noverrides: {sources: [{node_id: \"10\", species: CL2}]}"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			require.Error(t, err)

			var e *errors.Error
			require.True(t, stderrors.As(err, &e))
			assert.Equal(t, errors.PhaseConfig, e.Phase)
			assert.Equal(t, errors.KindInvalidData, e.Kind)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte("project:\n  input: net1.msx\n  report: true\n"), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "net1.msx", c.Project.Input)
	assert.True(t, c.Project.Report)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, os.ErrNotExist))
}
