package main

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/ironsheep/quadtree-mcp/internal/config"
	"github.com/ironsheep/quadtree-mcp/internal/logging"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const (
	flagConfig      = "config"
	flagDebug       = "debug"
	flagTolerance   = "tolerance"
	flagMinLeafSize = "min-leaf-size"
	flagMetric      = "metric"
	flagBlur        = "blur"
	flagOut         = "out"
	flagCompress    = "compress"
	flagMode        = "mode"
	flagLineColor   = "line-color"
	flagLineWidth   = "line-width"
	flagScale       = "scale"
	flagTree        = "tree"
)

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "quadtree-mcp: %v\n", err)
		os.Exit(1)
	}
}

// app carries the state shared by every command.
type app struct {
	out    io.Writer
	cfg    *config.Config
	logger *zap.Logger
}

func newApp(out io.Writer) *cli.App {
	a := &app{out: out}

	cli.VersionPrinter = func(c *cli.Context) {
		fmt.Fprintf(c.App.Writer, "quadtree-mcp %s\n", Version)
		fmt.Fprintf(c.App.Writer, "  Build time: %s\n", BuildTime)
		fmt.Fprintf(c.App.Writer, "  Git commit: %s\n", GitCommit)
	}

	return &cli.App{
		Name:    "quadtree-mcp",
		Usage:   "MCP server and tools for region quadtree image decomposition",
		Version: Version,
		Writer:  out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE`",
				EnvVars: []string{config.EnvPrefix + "_CONFIG"},
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
		},
		Before: a.setup,
		After: func(*cli.Context) error {
			logging.Sync(a.logger)
			return nil
		},
		// Running without a command serves MCP, which is how MCP clients
		// launch the binary.
		Action: a.serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "serve MCP over stdin/stdout",
				Action: a.serve,
			},
			{
				Name:      "build",
				Usage:     "build a quadtree from an image and optionally save it",
				ArgsUsage: "IMAGE",
				Flags: append(buildFlags(),
					&cli.StringFlag{
						Name:    flagOut,
						Aliases: []string{"o"},
						Usage:   "write the tree to `FILE`",
					},
					&cli.BoolFlag{
						Name:  flagCompress,
						Usage: "zstd-compress the tree file (defaults to store.compress)",
					},
				),
				Action: a.build,
			},
			{
				Name:      "render",
				Usage:     "render an image's quadtree, or a saved tree, to a PNG",
				ArgsUsage: "[IMAGE]",
				Flags: append(buildFlags(),
					&cli.StringFlag{
						Name:     flagOut,
						Aliases:  []string{"o"},
						Usage:    "write the rendering to `FILE`",
						Required: true,
					},
					&cli.StringFlag{
						Name:  flagTree,
						Usage: "render the saved tree `FILE`; with IMAGE, draw it over that image",
					},
					&cli.StringFlag{
						Name:  flagMode,
						Value: "overlay",
						Usage: "overlay, reconstruct or outlined",
					},
					&cli.StringFlag{
						Name:  flagLineColor,
						Usage: "line color as #RRGGBB or #RRGGBBAA (defaults to render.line_color)",
					},
					&cli.Float64Flag{
						Name:  flagLineWidth,
						Usage: "line width in pixels (defaults to render.line_width)",
					},
					&cli.IntFlag{
						Name:  flagScale,
						Value: 1,
						Usage: "integer upscale factor",
					},
				),
				Action: a.render,
			},
			{
				Name:      "info",
				Usage:     "print the header and statistics of a saved tree",
				ArgsUsage: "TREE",
				Action:    a.info,
			},
		},
	}
}

func buildFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Float64Flag{
			Name:    flagTolerance,
			Aliases: []string{"t"},
			Usage:   "homogeneity tolerance (defaults to build.tolerance)",
		},
		&cli.IntFlag{
			Name:  flagMinLeafSize,
			Usage: "never split regions this narrow (defaults to build.min_leaf_size)",
		},
		&cli.StringFlag{
			Name:  flagMetric,
			Usage: "maxchannel, variance or lab (defaults to build.metric)",
		},
		&cli.Float64Flag{
			Name:  flagBlur,
			Usage: "Gaussian blur radius applied before building (defaults to build.blur_sigma)",
		},
	}
}

// setup loads configuration and builds the logger before any command runs.
func (a *app) setup(c *cli.Context) error {
	cfg, err := config.Load(c.String(flagConfig))
	if err != nil {
		return err
	}
	if c.Bool(flagDebug) {
		cfg.Log.Level = "debug"
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Mode)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger.With(zap.String("version", Version))
	a.logger.Debug("configuration loaded",
		zap.String("config", c.String(flagConfig)),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit))
	return nil
}
