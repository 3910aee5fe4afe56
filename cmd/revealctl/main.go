package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/wippyai/reveal-bridge/alloc"
	"github.com/wippyai/reveal-bridge/blob"
	"github.com/wippyai/reveal-bridge/boundary"
	"github.com/wippyai/reveal-bridge/config"
	"github.com/wippyai/reveal-bridge/ctm"
	"github.com/wippyai/reveal-bridge/i3df"
	"github.com/wippyai/reveal-bridge/mesh"
	"github.com/wippyai/reveal-bridge/renderables"
	"github.com/wippyai/reveal-bridge/scene"
	"github.com/wippyai/reveal-bridge/sector"
	"github.com/wippyai/reveal-bridge/wasmhost"
	"go.uber.org/zap"
)

const usage = `Usage: revealctl [flags] <command> [args]

Commands:
  mesh <file.ctm>            decode an OpenCTM mesh
  sector <root> [child...]   decode a root sector and children against it
  scene <file.i3d>           decode a whole i3df file
  schema                     print the WIT types crossing the boundary

Flags:
`

func main() {
	var (
		configPath  = flag.String("config", "", "Path to YAML configuration")
		forceZstd   = flag.Bool("zstd", false, "Inputs are zstd compressed (implied by a .zst extension)")
		verbose     = flag.Bool("v", false, "Debug logging")
		interactive = flag.Bool("i", false, "Browse decoded sectors in a TUI")
	)
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	app, err := setup(*configPath, *verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer app.logger.Sync()
	app.zstd = *forceZstd
	app.interactive = *interactive

	if err := app.run(flag.Arg(0), flag.Args()[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type app struct {
	logger      *zap.Logger
	cfg         config.Config
	zstd        bool
	interactive bool
	styled      bool
}

func setup(configPath string, verbose bool) (*app, error) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return nil, err
		}
	}
	if verbose {
		cfg.Log.Level = "debug"
		cfg.Log.Development = true
	}

	logger, err := cfg.NewLogger()
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	installLogger(logger)

	if err := alloc.Configure(cfg.AllocConfig()); err != nil {
		return nil, err
	}
	logger.Debug("configured",
		zap.String("log_level", cfg.Log.Level),
		zap.String("allocator", string(alloc.Current())),
		zap.Int("max_blob_bytes", cfg.Limits.MaxBlobBytes),
		zap.Int("max_sectors", cfg.Limits.MaxSectors))
	return &app{logger: logger, cfg: cfg, styled: isTerminal(os.Stdout)}, nil
}

func installLogger(l *zap.Logger) {
	alloc.SetLogger(l.Named("alloc"))
	blob.SetLogger(l.Named("blob"))
	boundary.SetLogger(l.Named("boundary"))
	ctm.SetLogger(l.Named("ctm"))
	i3df.SetLogger(l.Named("i3df"))
	mesh.SetLogger(l.Named("mesh"))
	renderables.SetLogger(l.Named("renderables"))
	scene.SetLogger(l.Named("scene"))
	sector.SetLogger(l.Named("sector"))
	wasmhost.SetLogger(l.Named("wasmhost"))
}

func (a *app) run(cmd string, args []string) error {
	switch cmd {
	case "mesh":
		if len(args) != 1 {
			return fmt.Errorf("mesh takes exactly one file")
		}
		return a.mesh(args[0])
	case "sector":
		if len(args) == 0 {
			return fmt.Errorf("sector needs a root file")
		}
		return a.sectors(args[0], args[1:])
	case "scene":
		if len(args) != 1 {
			return fmt.Errorf("scene takes exactly one file")
		}
		return a.scene(args[0])
	case "schema":
		return a.schema()
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *app) mesh(path string) error {
	data, err := readInput(path, a.zstd, a.cfg.Limits.MaxBlobBytes)
	if err != nil {
		return err
	}
	out, err := mesh.Decode(data)
	if err != nil {
		return err
	}
	fmt.Print(a.render(meshSummary(path, out)))
	return nil
}

func (a *app) sectors(rootPath string, childPaths []string) error {
	data, err := readInput(rootPath, a.zstd, a.cfg.Limits.MaxBlobBytes)
	if err != nil {
		return err
	}
	root, err := sector.DecodeRoot(data)
	if err != nil {
		return fmt.Errorf("%s: %w", rootPath, err)
	}

	entries := []entry{{title: rootPath, sector: sector.Convert(root)}}
	for _, p := range childPaths {
		data, err := readInput(p, a.zstd, a.cfg.Limits.MaxBlobBytes)
		if err != nil {
			return err
		}
		child, err := sector.DecodeChild(root, data)
		if err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
		entries = append(entries, entry{title: p, depth: 1, sector: sector.Convert(child)})
	}
	return a.show(rootPath, entries)
}

func (a *app) scene(path string) error {
	data, err := readInput(path, a.zstd, a.cfg.Limits.MaxBlobBytes)
	if err != nil {
		return err
	}
	d := scene.NewDecoder(scene.I3DF, scene.Renderables, scene.WithMaxSectors(a.cfg.Limits.MaxSectors))
	sc, err := d.Decode(data)
	if err != nil {
		return err
	}
	return a.show(path, sceneEntries(sc))
}

func (a *app) show(title string, entries []entry) error {
	if a.interactive {
		return runInteractive(title, entries)
	}
	fmt.Print(a.render(treeSummary(title, entries)))
	return nil
}

func (a *app) schema() error {
	text, err := schemaText(a.cfg)
	if err != nil {
		return err
	}
	fmt.Print(a.render(text))
	return nil
}
