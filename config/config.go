// Package config reads msxctl run files.
//
// A run file names the engine backend to load and describes one scenario:
// the input file, how hydraulics are obtained, how quality is solved, which
// values to override before the run and which to sample while it steps.
// Enumerated fields (element, source type) accept the engine's symbolic
// names or integer codes, the same as the toolkit.
package config

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	msx "github.com/wippyai/msx-toolkit"
	"github.com/wippyai/msx-toolkit/errors"
)

// Backends.
const (
	BackendNative = "native"
	BackendWasm   = "wasm"
)

// Solve modes.
const (
	ModeStep  = "step"
	ModeSolve = "solve"
)

// Log formats. An empty format picks console on a terminal, json otherwise.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Config is a parsed run file.
type Config struct {
	Engine    Engine    `yaml:"engine"`
	Log       Log       `yaml:"log"`
	Project   Project   `yaml:"project"`
	Overrides Overrides `yaml:"overrides"`
	Watch     []Watch   `yaml:"watch"`
}

// Engine selects and configures the engine backend.
type Engine struct {
	Backend          string `yaml:"backend"`
	Library          string `yaml:"library"`
	Module           string `yaml:"module"`
	FSRoot           string `yaml:"fs_root"`
	MemoryLimitPages uint32 `yaml:"memory_limit_pages"`
	ErrorBufferLen   int    `yaml:"error_buffer_len"`
}

// Log configures the CLI logger.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Project describes the run itself.
type Project struct {
	Input           string `yaml:"input"`
	Hydraulics      string `yaml:"hydraulics"`
	SolveHydraulics bool   `yaml:"solve_hydraulics"`
	SaveScratch     bool   `yaml:"save_scratch"`
	Mode            string `yaml:"mode"`
	Output          string `yaml:"output"`
	SaveProject     string `yaml:"save_project"`
	Report          bool   `yaml:"report"`
}

// Overrides are applied after the project opens and before hydraulics run.
type Overrides struct {
	Constants   []Constant     `yaml:"constants"`
	Parameters  []Parameter    `yaml:"parameters"`
	InitQuality []InitQuality  `yaml:"init_quality"`
	Patterns    []PatternValue `yaml:"patterns"`
	Sources     []Source       `yaml:"sources"`
}

// Element refers to a node or link by 1-based index. The engine only
// resolves species, constant, parameter and pattern names, so nodes and
// links have no ID form. An omitted element type means NODE.
type Element struct {
	Type  msx.ObjectType `yaml:"element"`
	Index int            `yaml:"index"`
}

// Constant sets a reaction constant by name.
type Constant struct {
	Name  string  `yaml:"name"`
	Value float64 `yaml:"value"`
}

// Parameter sets a reaction parameter at one element.
type Parameter struct {
	Element `yaml:",inline"`
	Name    string  `yaml:"name"`
	Value   float64 `yaml:"value"`
}

// InitQuality sets a species' initial quality at one element.
type InitQuality struct {
	Element `yaml:",inline"`
	Species string  `yaml:"species"`
	Value   float64 `yaml:"value"`
}

// PatternValue replaces a pattern's multipliers, creating the pattern first
// when Create is set.
type PatternValue struct {
	Name        string    `yaml:"name"`
	Multipliers []float64 `yaml:"multipliers"`
	Create      bool      `yaml:"create"`
}

// Source sets a species source at a node. Pattern names a pattern; empty
// means a constant source. An omitted type means CONCEN.
type Source struct {
	Node    int            `yaml:"node"`
	Species string         `yaml:"species"`
	Type    msx.SourceType `yaml:"type"`
	Level   float64        `yaml:"level"`
	Pattern string         `yaml:"pattern"`
}

// Watch samples one species at one element on every step.
type Watch struct {
	Element `yaml:",inline"`
	Species string `yaml:"species"`
}

// DefaultLibrary is the shared library name dlopen()ed when none is given.
func DefaultLibrary() string {
	if runtime.GOOS == "darwin" {
		return "libepanetmsx.dylib"
	}
	return "libepanetmsx.so"
}

// Load reads, defaults and validates the run file at path.
func Load(path string) (*Config, error) {
	c, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := c.finish(); err != nil {
		return nil, err
	}
	return c, nil
}

// Parse decodes, defaults and validates a run file.
func Parse(data []byte) (*Config, error) {
	c, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if err := c.finish(); err != nil {
		return nil, err
	}
	return c, nil
}

// ReadFile decodes the run file at path without defaulting or validating
// it, so callers can layer flags on top first.
func ReadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindNotFound, err, "read run file "+path)
	}
	return Decode(data)
}

// Decode decodes a run file without defaulting or validating it. Unknown
// keys are errors.
func Decode(data []byte) (*Config, error) {
	var c Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !stderrors.Is(err, io.EOF) {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "parse run file")
	}
	return &c, nil
}

func (c *Config) finish() error {
	c.ApplyDefaults()
	return c.Validate()
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Engine.Backend == "" {
		c.Engine.Backend = BackendNative
	}
	if c.Engine.Backend == BackendNative && c.Engine.Library == "" {
		c.Engine.Library = DefaultLibrary()
	}
	if c.Engine.FSRoot == "" {
		c.Engine.FSRoot = "."
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Project.Mode == "" {
		c.Project.Mode = ModeStep
	}
	if c.Project.Hydraulics == "" {
		c.Project.SolveHydraulics = true
	}
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if err := c.ValidateEngine(); err != nil {
		return err
	}

	if c.Project.Input == "" {
		return invalid("project.input", "required")
	}
	if c.Project.Hydraulics != "" && c.Project.SolveHydraulics {
		return invalid("project.hydraulics", "set either hydraulics or solve_hydraulics, not both")
	}
	switch c.Project.Mode {
	case ModeStep, ModeSolve:
	default:
		return invalid("project.mode", fmt.Sprintf("unknown mode %q", c.Project.Mode))
	}

	return c.validateOverrides()
}

// ValidateEngine checks only the engine and log sections, for commands
// that talk to the engine without opening a project.
func (c *Config) ValidateEngine() error {
	switch c.Engine.Backend {
	case BackendNative:
		if c.Engine.Library == "" {
			return invalid("engine.library", "required for the native backend")
		}
	case BackendWasm:
		if c.Engine.Module == "" {
			return invalid("engine.module", "required for the wasm backend")
		}
	default:
		return invalid("engine.backend", fmt.Sprintf("unknown backend %q", c.Engine.Backend))
	}
	if c.Engine.ErrorBufferLen < 0 {
		return invalid("engine.error_buffer_len", "must not be negative")
	}

	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return invalid("log.level", err.Error())
	}
	switch c.Log.Format {
	case "", FormatConsole, FormatJSON:
	default:
		return invalid("log.format", fmt.Sprintf("unknown format %q", c.Log.Format))
	}
	return nil
}

func (c *Config) validateOverrides() error {
	o := &c.Overrides
	for i, v := range o.Constants {
		if v.Name == "" {
			return invalid(fmt.Sprintf("overrides.constants[%d].name", i), "required")
		}
	}
	for i, v := range o.Parameters {
		field := fmt.Sprintf("overrides.parameters[%d]", i)
		if err := v.Element.validate(field); err != nil {
			return err
		}
		if v.Name == "" {
			return invalid(field+".name", "required")
		}
	}
	for i, v := range o.InitQuality {
		field := fmt.Sprintf("overrides.init_quality[%d]", i)
		if err := v.Element.validate(field); err != nil {
			return err
		}
		if v.Species == "" {
			return invalid(field+".species", "required")
		}
	}
	for i, v := range o.Patterns {
		field := fmt.Sprintf("overrides.patterns[%d]", i)
		if v.Name == "" {
			return invalid(field+".name", "required")
		}
		if len(v.Multipliers) == 0 && !v.Create {
			return invalid(field+".multipliers", "required unless create is set")
		}
	}
	for i, v := range o.Sources {
		field := fmt.Sprintf("overrides.sources[%d]", i)
		if err := ref(field+".node", v.Node); err != nil {
			return err
		}
		if v.Species == "" {
			return invalid(field+".species", "required")
		}
		if !v.Type.Valid() {
			return invalid(field+".type", "unknown source type")
		}
	}
	for i, w := range c.Watch {
		field := fmt.Sprintf("watch[%d]", i)
		if err := w.Element.validate(field); err != nil {
			return err
		}
		if w.Species == "" {
			return invalid(field+".species", "required")
		}
	}
	return nil
}

func (e Element) validate(field string) error {
	if e.Type != msx.Node && e.Type != msx.Link {
		return invalid(field+".element", fmt.Sprintf("%s is not a node or link", e.Type))
	}
	return ref(field+".index", e.Index)
}

func ref(field string, index int) error {
	switch {
	case index == 0:
		return invalid(field, "required")
	case index < 0:
		return invalid(field, "index is 1-based")
	}
	return nil
}

func invalid(field, detail string) error {
	return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
		Op(field).
		Detail("%s", detail).
		Build()
}
