package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/msx-toolkit/config"
	"github.com/wippyai/msx-toolkit/engine"
	"github.com/wippyai/msx-toolkit/scenario"
	"github.com/wippyai/msx-toolkit/toolkit"
)

// openLibrary loads the configured engine backend. Tests replace it.
var openLibrary = func(ctx context.Context, cfg *config.Config) (engine.Library, error) {
	switch cfg.Engine.Backend {
	case config.BackendWasm:
		wcfg := &engine.WazeroConfig{
			FSRoot:           cfg.Engine.FSRoot,
			MemoryLimitPages: cfg.Engine.MemoryLimitPages,
		}
		if cfg.Log.Level == "debug" {
			wcfg.Stdout = os.Stderr
			wcfg.Stderr = os.Stderr
		}
		lib, err := engine.LoadWazeroLibrary(ctx, cfg.Engine.Module, wcfg)
		if err != nil {
			return nil, err
		}
		return lib, nil
	default:
		lib, err := engine.OpenNative(cfg.Engine.Library)
		if err != nil {
			return nil, err
		}
		return lib, nil
	}
}

// loadConfig builds the run configuration: the run file if one was given,
// then global flags, then the input argument, then defaults.
func loadConfig(input string, apply func(*config.Config)) (*config.Config, error) {
	cfg, err := layerConfig(input, apply)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadEngineConfig is loadConfig for commands that never open a project.
func loadEngineConfig() (*config.Config, error) {
	cfg, err := layerConfig("", nil)
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateEngine(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func layerConfig(input string, apply func(*config.Config)) (*config.Config, error) {
	cfg := &config.Config{}
	if configPath != "" {
		c, err := config.ReadFile(configPath)
		if err != nil {
			return nil, err
		}
		cfg = c
	}

	if backendFlag != "" {
		cfg.Engine.Backend = backendFlag
	}
	if libraryFlag != "" {
		cfg.Engine.Library = libraryFlag
	}
	if moduleFlag != "" {
		cfg.Engine.Module = moduleFlag
	}
	if fsRootFlag != "" {
		cfg.Engine.FSRoot = fsRootFlag
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	if input != "" {
		cfg.Project.Input = input
	}
	if apply != nil {
		apply(cfg)
	}

	cfg.ApplyDefaults()
	return cfg, nil
}

// newLogger builds the CLI logger: console encoding on a terminal, json
// otherwise, unless the configuration names one.
func newLogger(lc config.Log) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(lc.Level)
	if err != nil {
		return nil, err
	}

	format := lc.Format
	if format == "" {
		format = config.FormatJSON
		if stderrTerminal() {
			format = config.FormatConsole
		}
	}

	var zc zap.Config
	if format == config.FormatConsole {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zc.DisableStacktrace = true
	} else {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	return zc.Build()
}

// session is everything a command needs to talk to the engine.
type session struct {
	cfg    *config.Config
	log    *zap.Logger
	lib    engine.Library
	tk     *toolkit.Toolkit
	closed bool
}

// openSession configures logging and loads the engine.
func openSession(ctx context.Context, cfg *config.Config) (*session, error) {
	log, err := newLogger(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	engine.SetLogger(log.Named("engine"))
	toolkit.SetLogger(log.Named("toolkit"))
	scenario.SetLogger(log.Named("scenario"))

	lib, err := openLibrary(ctx, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}
	log.Debug("engine loaded", zap.String("backend", cfg.Engine.Backend))

	var opts []toolkit.Option
	if cfg.Engine.ErrorBufferLen > 0 {
		opts = append(opts, toolkit.WithErrorBufferLen(cfg.Engine.ErrorBufferLen))
	}
	return &session{cfg: cfg, log: log, lib: lib, tk: toolkit.New(lib, opts...)}, nil
}

func (s *session) Close(ctx context.Context) {
	if s.closed {
		return
	}
	s.closed = true
	if err := s.lib.Release(ctx); err != nil {
		s.log.Warn("release engine", zap.Error(err))
	}
	s.log.Sync()
}
