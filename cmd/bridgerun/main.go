package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	scenebridge "github.com/sceneforge/scene-bridge"
	"github.com/sceneforge/scene-bridge/config"
	"github.com/sceneforge/scene-bridge/engine"
	"github.com/sceneforge/scene-bridge/engine/sceneengine"
	"github.com/sceneforge/scene-bridge/engine/wasmengine"
	"github.com/sceneforge/scene-bridge/session"
)

func main() {
	var (
		sceneFile   = flag.String("scene", "", "Path to scene file")
		configFile  = flag.String("config", "", "Path to YAML config (optional)")
		backend     = flag.String("engine", "", "Engine backend: scene or wasm (overrides config)")
		wasmModule  = flag.String("wasm", "", "Path to engine .wasm module (overrides config)")
		inspect     = flag.Bool("inspect", false, "List artboards and state machines and exit")
		frames      = flag.Int("frames", 120, "Number of frames to advance and draw")
		dt          = flag.Duration("dt", 16*time.Millisecond, "Elapsed time per frame")
		width       = flag.Uint("width", 512, "Surface width in pixels")
		height      = flag.Uint("height", 512, "Surface height in pixels")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *sceneFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: bridgerun -scene <file> [-frames n] [-dt 16ms]")
		fmt.Fprintln(os.Stderr, "       bridgerun -scene <file> -inspect")
		fmt.Fprintln(os.Stderr, "       bridgerun -scene <file> -i  (interactive mode)")
		os.Exit(1)
	}

	cfg, err := loadConfig(*configFile, *backend, *wasmModule)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode requires a terminal")
			os.Exit(1)
		}
		if err := runInteractive(*sceneFile, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(*sceneFile, cfg, *inspect, *frames, *dt, uint32(*width), uint32(*height)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path, backend, wasmModule string) (*config.Config, error) {
	cfg := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if backend != "" {
		cfg.Engine.Backend = backend
	}
	if wasmModule != "" {
		cfg.Engine.Module = wasmModule
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	zcfg := zap.NewDevelopmentConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}

// newEngineFactory builds the constructor the worker goroutine runs. For the
// wasm backend the module bytes are read once, up front, so a bad path fails
// before any session starts.
func newEngineFactory(cfg *config.Config, logger *zap.Logger) (func() (engine.Engine, error), error) {
	switch cfg.Engine.Backend {
	case "wasm":
		wasmBytes, err := os.ReadFile(cfg.Engine.Module)
		if err != nil {
			return nil, fmt.Errorf("read engine module: %w", err)
		}
		return func() (engine.Engine, error) {
			return wasmengine.New(context.Background(), wasmBytes, wasmengine.WithLogger(logger))
		}, nil
	default:
		return func() (engine.Engine, error) {
			return sceneengine.New(sceneengine.WithLogger(logger)), nil
		}, nil
	}
}

func newSession(cfg *config.Config, logger *zap.Logger) (*session.Session, error) {
	newEngine, err := newEngineFactory(cfg, logger)
	if err != nil {
		return nil, err
	}
	sess, serr := session.New(session.Options{
		NewEngine:     newEngine,
		QueueCapacity: cfg.Queue.Capacity,
		StreamBuffer:  cfg.Streams.PropertyBuffer,
		ErrorBuffer:   cfg.Streams.ErrorBuffer,
		Logger:        logger,
	})
	if serr != nil {
		return nil, serr
	}
	return sess, nil
}

// await pumps the poll loop until the pending operation resolves.
func await[T any](sess *session.Session, p *session.Pending[T]) (T, error) {
	for {
		sess.PollMessages()
		select {
		case <-p.Done():
			return p.Result()
		case <-time.After(time.Millisecond):
		}
	}
}

func run(sceneFile string, cfg *config.Config, inspect bool, frames int, dt time.Duration, width, height uint32) error {
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	data, err := os.ReadFile(sceneFile)
	if err != nil {
		return fmt.Errorf("read scene: %w", err)
	}

	sess, err := newSession(cfg, logger)
	if err != nil {
		return err
	}
	if err := sess.Acquire("cli"); err != nil {
		return err
	}
	defer sess.Release("cli")

	file, imported := sess.ImportFile(data)
	if _, err := await(sess, imported); err != nil {
		return fmt.Errorf("import %s: %w", sceneFile, err)
	}

	names, err := await(sess, sess.ListArtboards(file))
	if err != nil {
		return err
	}
	fmt.Printf("Scene: %s\n", sceneFile)
	fmt.Printf("Engine: %s\n", cfg.Engine.Backend)
	fmt.Printf("Artboards: %d\n", len(names))

	if inspect {
		for _, name := range names {
			ab, created := sess.InstanceArtboard(file, session.ByName(name))
			if _, err := await(sess, created); err != nil {
				return err
			}
			machines, err := await(sess, sess.ListStateMachines(ab))
			if err != nil {
				return err
			}
			fmt.Printf("  %s\n", name)
			for _, m := range machines {
				fmt.Printf("    state machine: %s\n", m)
			}
			if serr := sess.Free(ab); serr != nil {
				return serr
			}
		}
		return nil
	}

	artboard, created := sess.InstanceArtboard(file, session.Default())
	if _, err := await(sess, created); err != nil {
		return err
	}
	machine, created := sess.InstanceStateMachine(artboard, session.Default())
	if _, err := await(sess, created); err != nil {
		return err
	}
	surface, created := sess.CreateSurface(width, height)
	if _, err := await(sess, created); err != nil {
		return err
	}

	entries := []scenebridge.DrawEntry{{
		Artboard:     artboard,
		StateMachine: machine,
		Transform:    scenebridge.Identity(),
	}}
	opts := scenebridge.DrawOptions{
		Fit:   scenebridge.FitContain,
		Align: scenebridge.AlignCenter,
		Clear: true,
	}

	settledAt := -1
	for frame := 0; frame < frames; frame++ {
		if serr := sess.AdvanceStateMachine(machine, dt); serr != nil {
			return serr
		}
		if _, err := await(sess, sess.DrawBatch(surface, entries, opts)); err != nil {
			return err
		}
		select {
		case ev := <-sess.Settles():
			if ev.Settled && settledAt < 0 {
				settledAt = frame
			}
		default:
		}
	}

	fmt.Printf("Frames drawn: %d\n", frames)
	if settledAt >= 0 {
		fmt.Printf("Settled at frame %d\n", settledAt)
	} else {
		fmt.Println("Did not settle")
	}
	return nil
}
