package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/msx-toolkit/config"
	"github.com/wippyai/msx-toolkit/engine"
	"github.com/wippyai/msx-toolkit/engine/enginetest"
	"github.com/wippyai/msx-toolkit/scenario"
	"github.com/wippyai/msx-toolkit/toolkit"
)

func newFake(duration int64) *enginetest.Fake {
	m := enginetest.Net1()
	if duration > 0 {
		m.Duration = duration
	}
	fake := enginetest.New()
	fake.AddProject("net1.msx", m)
	fake.AddHydFile("net1.hyd")
	return fake
}

func resetFlags(root *cobra.Command) {
	reset := func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmds := append([]*cobra.Command{root}, root.Commands()...)
	for _, c := range cmds {
		c.Flags().VisitAll(reset)
		c.PersistentFlags().VisitAll(reset)
	}
}

// execute runs msxctl against lib and returns what it printed.
func execute(t *testing.T, lib engine.Library, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	prev := openLibrary
	openLibrary = func(context.Context, *config.Config) (engine.Library, error) { return lib, nil }
	t.Cleanup(func() { openLibrary = prev })

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(append(args, "--log-level", "error"))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeRunFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestRootCommand(t *testing.T) {
	assert.Equal(t, "msxctl", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)

	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
		assert.NotNil(t, c.RunE, c.Name())
	}
	for _, want := range []string{"run", "step", "inspect", "errors"} {
		assert.True(t, names[want], "missing command %s", want)
	}

	for _, name := range []string{"config", "backend", "library", "module", "fs-root", "log-level", "log-format"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), name)
	}
	assert.NotNil(t, stepCmd.Flags().ShorthandLookup("i"))
}

func TestRun(t *testing.T) {
	fake := newFake(3600)
	path := writeRunFile(t, `
project:
  input: net1.msx
  report: true
watch:
  - {element: NODE, index: 1, species: AS3}
  - {element: LINK, index: 7, species: NH2CL}
`)

	out, err := execute(t, fake, "run", "-c", path)
	require.NoError(t, err)

	assert.Contains(t, out, "net1.msx")
	assert.Contains(t, out, "steps:")
	assert.Contains(t, out, "Final quality")
	assert.Contains(t, out, "node 1 AS3")
	assert.Contains(t, out, "link 7 NH2CL")

	assert.Equal(t, 10, fake.CallCount(engine.SymStep))
	assert.Equal(t, 1, fake.Reports())
	assert.False(t, fake.IsOpen())
	assert.True(t, fake.Released())
}

func TestRun_FlagsOverrideRunFile(t *testing.T) {
	fake := newFake(3600)
	path := writeRunFile(t, "project: {input: net1.msx, mode: step}")

	out, err := execute(t, fake, "run", "-c", path, "--mode", "solve", "--hydraulics", "net1.hyd", "--output", "x.out")
	require.NoError(t, err)
	assert.Contains(t, out, "solve")
	assert.NotContains(t, out, "simulated")

	assert.Equal(t, 0, fake.CallCount(engine.SymStep))
	assert.Equal(t, 1, fake.CallCount(engine.SymSolveQ))
	assert.Equal(t, 1, fake.CallCount(engine.SymUseHydFile))
	assert.Equal(t, 0, fake.CallCount(engine.SymSolveH))
	assert.Equal(t, []string{"x.out"}, fake.Outputs())
}

func TestRun_Errors(t *testing.T) {
	t.Run("no input", func(t *testing.T) {
		_, err := execute(t, newFake(0), "run")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "project.input")
	})

	t.Run("unknown input", func(t *testing.T) {
		fake := newFake(0)
		_, err := execute(t, fake, "run", "other.msx")
		require.Error(t, err)
		assert.Contains(t, err.Error(), engine.Messages[engine.ErrOpenMsxFile])
		assert.True(t, fake.Released())
	})

	t.Run("bad mode", func(t *testing.T) {
		_, err := execute(t, newFake(0), "run", "net1.msx", "--mode", "fast")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "project.mode")
	})
}

func TestStep(t *testing.T) {
	fake := newFake(0)

	out, err := execute(t, fake, "step", "net1.msx", "--every", "100")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 6, out)
	assert.Contains(t, lines[0], "step")
	assert.Contains(t, lines[5], "480")
	assert.Contains(t, lines[5], "48h0m0s")
	assert.False(t, fake.IsOpen())
}

func TestStep_RejectsBadEvery(t *testing.T) {
	_, err := execute(t, newFake(0), "step", "net1.msx", "--every", "0")
	require.Error(t, err)
}

func TestStep_InteractiveNeedsTerminal(t *testing.T) {
	if interactiveTerminal() {
		t.Skip("running on a terminal")
	}
	fake := newFake(0)
	_, err := execute(t, fake, "step", "net1.msx", "-i")
	require.Error(t, err)
	assert.Equal(t, 0, fake.CallCount(""))
}

func TestInspect(t *testing.T) {
	fake := newFake(0)

	out, err := execute(t, fake, "inspect", "net1.msx")
	require.NoError(t, err)

	for _, want := range []string{"Objects", "Species", "AS3", "AS5s", "Constants", "Ka"} {
		assert.Contains(t, out, want)
	}
	assert.False(t, fake.IsOpen())
	assert.True(t, fake.Released())
}

func TestInspect_YAML(t *testing.T) {
	fake := newFake(0)
	fake.AddProject("pat.msx", func() enginetest.Model {
		m := enginetest.Net1()
		m.Patterns = []enginetest.Pattern{{ID: "DAY", Multipliers: []float64{1, 0.5}}}
		return m
	}())

	out, err := execute(t, fake, "inspect", "pat.msx", "--yaml")
	require.NoError(t, err)

	var ins inspection
	require.NoError(t, yaml.Unmarshal([]byte(out), &ins))
	assert.Equal(t, "pat.msx", ins.Input)
	assert.Equal(t, 11, ins.Counts["node"])
	assert.Equal(t, 13, ins.Counts["link"])
	assert.Equal(t, 5, ins.Counts["species"])
	require.Len(t, ins.Species, 5)
	assert.Equal(t, speciesInfo{ID: "AS5s", Location: "WALL", Units: "UG", ATol: 0.001, RTol: 0.001}, ins.Species[3])
	assert.Equal(t, constantInfo{ID: "Ka", Value: 10}, ins.Constants[0])
	assert.Equal(t, []patternInfo{{ID: "DAY", Multipliers: []float64{1, 0.5}}}, ins.Patterns)
	assert.Equal(t, 1, ins.Counts["term"])
}

func TestErrors(t *testing.T) {
	t.Run("engine", func(t *testing.T) {
		fake := newFake(0)
		out, err := execute(t, fake, "errors", "519", "999")
		require.NoError(t, err)
		assert.Contains(t, out, engine.Messages[engine.ErrNotOpened])
		assert.Contains(t, out, "MSX toolkit undocumented error 999")
		assert.Equal(t, 2, fake.CallCount(engine.SymGetError))
	})

	t.Run("offline", func(t *testing.T) {
		fake := newFake(0)
		out, err := execute(t, fake, "errors", "--offline", "503", "7")
		require.NoError(t, err)
		assert.Contains(t, out, engine.Messages[engine.ErrOpenMsxFile])
		assert.Contains(t, out, "MSX toolkit undocumented error 7")
		assert.Equal(t, 0, fake.CallCount(""))
	})

	t.Run("not a number", func(t *testing.T) {
		_, err := execute(t, newFake(0), "errors", "--offline", "abc")
		require.Error(t, err)
	})
}

func keyMsg(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestInteractiveModel(t *testing.T) {
	ctx := context.Background()
	fake := newFake(720)
	cfg, err := config.Parse([]byte(`
project: {input: net1.msx}
watch: [{element: NODE, index: 1, species: AS3}]
`))
	require.NoError(t, err)

	run, err := scenario.NewRunner(toolkit.New(fake), cfg).Start(ctx)
	require.NoError(t, err)
	m := newInteractiveModel(ctx, "net1.msx", run)
	assert.Contains(t, m.View(), "node 1 AS3")
	assert.Contains(t, m.View(), "space step")

	_, cmd := m.Update(keyMsg('n'))
	require.NotNil(t, cmd)
	_, cmd = m.Update(cmd())
	assert.Nil(t, cmd)
	assert.Equal(t, 1, run.Steps())
	assert.InDelta(t, 0.5, m.fraction(), 1e-9)

	// A second key press while a step is running is ignored.
	_, cmd = m.Update(keyMsg('n'))
	require.NotNil(t, cmd)
	_, again := m.Update(keyMsg('n'))
	assert.Nil(t, again)

	_, cmd = m.Update(cmd())
	require.NotNil(t, cmd, "last step finishes the run")
	m.Update(cmd())

	assert.Equal(t, stateDone, m.state)
	assert.Contains(t, m.View(), "Simulation complete.")
	assert.False(t, fake.IsOpen())
	assert.Equal(t, 1.0, m.fraction())

	_, cmd = m.Update(keyMsg('q'))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestInteractiveModel_QuitClosesProject(t *testing.T) {
	ctx := context.Background()
	fake := newFake(0)
	cfg, err := config.Parse([]byte("project: {input: net1.msx}"))
	require.NoError(t, err)

	run, err := scenario.NewRunner(toolkit.New(fake), cfg).Start(ctx)
	require.NoError(t, err)
	m := newInteractiveModel(ctx, "net1.msx", run)
	assert.Contains(t, m.View(), "No watched values")

	_, cmd := m.Update(keyMsg('r'))
	require.NotNil(t, cmd)
	assert.Equal(t, statePlaying, m.state)
	_, cmd = m.Update(cmd())
	require.NotNil(t, cmd, "playing schedules the next tick")

	m.Update(keyMsg('p'))
	assert.Equal(t, stateReady, m.state)

	m.Update(keyMsg('q'))
	assert.False(t, fake.IsOpen())
	assert.Empty(t, fake.Outputs())
}

func TestInteractiveModel_StepFailure(t *testing.T) {
	ctx := context.Background()
	fake := newFake(0)
	fake.Fail(engine.SymStep, engine.ErrIntegrate)
	cfg, err := config.Parse([]byte("project: {input: net1.msx}"))
	require.NoError(t, err)

	run, err := scenario.NewRunner(toolkit.New(fake), cfg).Start(ctx)
	require.NoError(t, err)
	m := newInteractiveModel(ctx, "net1.msx", run)

	_, cmd := m.Update(keyMsg('n'))
	m.Update(cmd())
	assert.Equal(t, stateFailed, m.state)
	assert.Contains(t, m.View(), engine.Messages[engine.ErrIntegrate])
	assert.False(t, fake.IsOpen())
}
