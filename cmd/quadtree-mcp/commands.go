package main

import (
	"errors"
	"fmt"
	"image"

	imgio "github.com/disintegration/imaging"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/ironsheep/quadtree-mcp/internal/config"
	"github.com/ironsheep/quadtree-mcp/internal/imaging"
	"github.com/ironsheep/quadtree-mcp/internal/quadtree"
	"github.com/ironsheep/quadtree-mcp/internal/server"
	"github.com/ironsheep/quadtree-mcp/internal/store"
)

func (a *app) serve(c *cli.Context) error {
	if c.Args().Present() {
		return fmt.Errorf("unexpected argument %q", c.Args().First())
	}
	srv := server.New(a.cfg, a.logger, server.WithVersion(Version))
	return srv.Run()
}

// buildConfig applies explicitly set build flags to the configured defaults.
func buildConfig(c *cli.Context, b config.BuildConfig) config.BuildConfig {
	if c.IsSet(flagTolerance) {
		b.Tolerance = c.Float64(flagTolerance)
	}
	if c.IsSet(flagMinLeafSize) {
		b.MinLeafSize = c.Int(flagMinLeafSize)
	}
	if c.IsSet(flagMetric) {
		b.Metric = c.String(flagMetric)
	}
	if c.IsSet(flagBlur) {
		b.BlurSigma = c.Float64(flagBlur)
	}
	return b
}

// buildImage decodes path and builds its tree with the effective settings.
func (a *app) buildImage(c *cli.Context, path string) (image.Image, *quadtree.Tree, error) {
	b := buildConfig(c, a.cfg.Build)
	opts, err := b.Options()
	if err != nil {
		return nil, nil, err
	}
	if b.BlurSigma < 0 {
		return nil, nil, fmt.Errorf("%w: blur radius %v must not be negative", quadtree.ErrConfig, b.BlurSigma)
	}

	img, err := imaging.Open(path)
	if err != nil {
		return nil, nil, err
	}
	tree, err := imaging.BuildFromImage(img, opts, b.BlurSigma)
	if err != nil {
		return nil, nil, err
	}

	stats := tree.Stats()
	a.logger.Info("quadtree built",
		zap.String("source", path),
		zap.Stringer("metric", opts.Metric),
		zap.Float64("tolerance", opts.Tolerance),
		zap.Int("leaves", stats.Leaves),
		zap.Int("max_depth", stats.MaxDepth))
	return img, tree, nil
}

func (a *app) build(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("build needs exactly one IMAGE argument")
	}

	_, tree, err := a.buildImage(c, c.Args().First())
	if err != nil {
		return err
	}
	printTree(a, tree)

	out := c.String(flagOut)
	if out == "" {
		return nil
	}
	compress := a.cfg.Store.Compress
	if c.IsSet(flagCompress) {
		compress = c.Bool(flagCompress)
	}
	n, err := store.Save(out, tree, compress)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "wrote %s (%d bytes, compressed=%t)\n", out, n, compress)
	return nil
}

func (a *app) render(c *cli.Context) error {
	mode, err := imaging.ParseRenderMode(c.String(flagMode))
	if err != nil {
		return err
	}

	source, tree, err := a.renderInputs(c, mode)
	if err != nil {
		return err
	}
	b := tree.Bounds()
	if err := imaging.CheckRenderSize(b.Width, b.Height, c.Int(flagScale), a.cfg.Render.MaxPixels); err != nil {
		return err
	}

	style := imaging.LineStyle{Color: a.cfg.Render.LineColor, Width: a.cfg.Render.LineWidth}
	if c.IsSet(flagLineColor) {
		style.Color = c.String(flagLineColor)
	}
	if c.IsSet(flagLineWidth) {
		style.Width = c.Float64(flagLineWidth)
	}

	img, err := imaging.Render(source, tree, mode, style)
	if err != nil {
		return err
	}

	out := c.String(flagOut)
	if err := imgio.Save(imaging.Scale(img, c.Int(flagScale)), out); err != nil {
		return fmt.Errorf("failed to save rendering: %w", err)
	}
	fmt.Fprintf(a.out, "wrote %s\n", out)
	return nil
}

// renderInputs resolves the render arguments: an IMAGE is built into a tree,
// a --tree FILE is loaded, and both together draw the saved tree over its
// source image.
func (a *app) renderInputs(c *cli.Context, mode imaging.RenderMode) (image.Image, *quadtree.Tree, error) {
	treePath := c.String(flagTree)
	switch {
	case c.NArg() > 1:
		return nil, nil, errors.New("render takes at most one IMAGE argument")
	case treePath == "" && c.NArg() == 0:
		return nil, nil, errors.New("render needs an IMAGE argument, --tree FILE, or both")
	case treePath == "":
		return a.buildImage(c, c.Args().First())
	}

	tree, err := store.Load(treePath)
	if err != nil {
		return nil, nil, err
	}
	if c.NArg() == 0 {
		if mode == imaging.RenderOverlay {
			return nil, nil, errors.New("overlay mode needs the source IMAGE")
		}
		return nil, tree, nil
	}

	source, err := imaging.Open(c.Args().First())
	if err != nil {
		return nil, nil, err
	}
	h := tree.Header()
	if uint32(source.Bounds().Dx()) != h.Width || uint32(source.Bounds().Dy()) != h.Height {
		return nil, nil, fmt.Errorf("image %s is %dx%d but tree %s covers %dx%d",
			c.Args().First(), source.Bounds().Dx(), source.Bounds().Dy(), treePath, h.Width, h.Height)
	}
	return source, tree, nil
}

func (a *app) info(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("info needs exactly one TREE argument")
	}
	tree, err := store.Load(c.Args().First())
	if err != nil {
		return err
	}
	printTree(a, tree)
	return nil
}

func printTree(a *app, t *quadtree.Tree) {
	h := t.Header()
	s := t.Stats()
	fmt.Fprintf(a.out, "size:       %dx%d\n", h.Width, h.Height)
	fmt.Fprintf(a.out, "metric:     %s (tolerance %g, min leaf %d)\n", h.Metric, h.Tolerance, h.MinLeafSize)
	fmt.Fprintf(a.out, "format:     v%d, quartering policy v%d\n", h.Version, h.Policy)
	fmt.Fprintf(a.out, "nodes:      %d (%d leaves, %d internal)\n", s.Nodes, s.Leaves, s.Internal)
	fmt.Fprintf(a.out, "max depth:  %d\n", s.MaxDepth)
	fmt.Fprintf(a.out, "encoded:    %d bytes (raw %d bytes)\n", s.EncodedBytes, s.RawBytes)
}
