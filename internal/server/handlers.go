package server

import (
	"errors"
	"fmt"
	"image"
	"math"
	"time"

	"github.com/segmentio/encoding/json"
	"go.uber.org/zap"

	"github.com/ironsheep/quadtree-mcp/internal/imaging"
	"github.com/ironsheep/quadtree-mcp/internal/quadtree"
	"github.com/ironsheep/quadtree-mcp/internal/store"
)

const (
	defaultTopColors = 5
	defaultLineLimit = 1000
	maxRenderScale   = 16
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "quadtree_build").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	start := time.Now()
	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		s.logger.Warn("tool failed",
			zap.String("tool", params.Name),
			zap.Duration("cost", time.Since(start)),
			zap.Error(err))
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}
	s.logger.Debug("tool done",
		zap.String("tool", params.Name),
		zap.Duration("cost", time.Since(start)))

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Source images
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)

	// Construction and persistence
	case "quadtree_build":
		return s.handleQuadtreeBuild(args)
	case "quadtree_save":
		return s.handleQuadtreeSave(args)
	case "quadtree_load":
		return s.handleQuadtreeLoad(args)
	case "quadtree_release":
		return s.handleQuadtreeRelease(args)

	// Queries
	case "quadtree_stats":
		return s.handleQuadtreeStats(args)
	case "quadtree_lines":
		return s.handleQuadtreeLines(args)
	case "quadtree_leaf_at":
		return s.handleQuadtreeLeafAt(args)

	// Visualization
	case "quadtree_render":
		return s.handleQuadtreeRender(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// decodeArgs unmarshals tool arguments. Missing arguments decode as an
// empty object.
func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

func (s *Server) lookupTree(id string) (*TreeEntry, error) {
	if id == "" {
		return nil, errors.New("tree_id is required")
	}
	e, ok := s.trees.Get(id)
	if !ok {
		return nil, fmt.Errorf("unknown tree_id %q", id)
	}
	return e, nil
}

// === Source Image Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (a imageLoadArgs) validate() error {
	if a.Path == "" {
		return errors.New("path is required")
	}
	return nil
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if err := a.validate(); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.images, a.Path)
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if err := a.validate(); err != nil {
		return nil, err
	}
	return imaging.GetDimensions(s.images, a.Path)
}

// === Construction and Persistence Handlers ===

// treeResult describes a tree held by the server.
type treeResult struct {
	TreeID  string          `json:"tree_id"`
	Source  string          `json:"source,omitempty"`
	Origin  string          `json:"origin"`
	Header  quadtree.Header `json:"header"`
	Stats   quadtree.Stats  `json:"stats"`
	BuildMS int64           `json:"build_ms,omitempty"`
}

func newTreeResult(e *TreeEntry) *treeResult {
	return &treeResult{
		TreeID: e.ID,
		Source: e.Source,
		Origin: e.Origin,
		Header: e.Tree.Header(),
		Stats:  e.Tree.Stats(),
	}
}

type quadtreeBuildArgs struct {
	Path        string   `json:"path"`
	Tolerance   *float64 `json:"tolerance"`
	MinLeafSize *int     `json:"min_leaf_size"`
	Metric      *string  `json:"metric"`
	BlurSigma   *float64 `json:"blur_sigma"`
}

// buildOptions overlays the request's explicit settings on the configured
// defaults.
func (s *Server) buildOptions(a quadtreeBuildArgs) (quadtree.Options, float64, error) {
	b := s.cfg.Build
	if a.Tolerance != nil {
		b.Tolerance = *a.Tolerance
	}
	if a.MinLeafSize != nil {
		b.MinLeafSize = *a.MinLeafSize
	}
	if a.Metric != nil {
		b.Metric = *a.Metric
	}
	if a.BlurSigma != nil {
		b.BlurSigma = *a.BlurSigma
	}

	opts, err := b.Options()
	if err != nil {
		return quadtree.Options{}, 0, err
	}
	if b.BlurSigma < 0 || math.IsNaN(b.BlurSigma) || math.IsInf(b.BlurSigma, 0) {
		return quadtree.Options{}, 0, fmt.Errorf("%w: blur_sigma %v must be a non-negative number", quadtree.ErrConfig, b.BlurSigma)
	}
	return opts, b.BlurSigma, nil
}

func (s *Server) handleQuadtreeBuild(args json.RawMessage) (interface{}, error) {
	var a quadtreeBuildArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errors.New("path is required")
	}

	opts, blurSigma, err := s.buildOptions(a)
	if err != nil {
		return nil, err
	}

	img, err := s.images.Load(a.Path)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	tree, err := imaging.BuildFromImage(img, opts, blurSigma)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	e := s.trees.Put(tree, a.Path, a.Path)
	stats := tree.Stats()
	s.logger.Info("quadtree built",
		zap.String("tree_id", e.ID),
		zap.String("source", a.Path),
		zap.Stringer("metric", opts.Metric),
		zap.Float64("tolerance", opts.Tolerance),
		zap.Int("leaves", stats.Leaves),
		zap.Int("max_depth", stats.MaxDepth),
		zap.Duration("cost", elapsed))

	result := newTreeResult(e)
	result.BuildMS = elapsed.Milliseconds()
	return result, nil
}

type quadtreeSaveArgs struct {
	TreeID   string `json:"tree_id"`
	Path     string `json:"path"`
	Compress *bool  `json:"compress"`
}

type saveResult struct {
	TreeID     string `json:"tree_id"`
	Path       string `json:"path"`
	Bytes      int64  `json:"bytes"`
	Compressed bool   `json:"compressed"`
}

func (s *Server) handleQuadtreeSave(args json.RawMessage) (interface{}, error) {
	var a quadtreeSaveArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	e, err := s.lookupTree(a.TreeID)
	if err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errors.New("path is required")
	}

	compress := s.cfg.Store.Compress
	if a.Compress != nil {
		compress = *a.Compress
	}

	n, err := store.Save(a.Path, e.Tree, compress)
	if err != nil {
		return nil, err
	}
	s.logger.Info("quadtree saved",
		zap.String("tree_id", e.ID),
		zap.String("path", a.Path),
		zap.Int64("bytes", n),
		zap.Bool("compressed", compress))

	return &saveResult{
		TreeID:     e.ID,
		Path:       a.Path,
		Bytes:      n,
		Compressed: compress,
	}, nil
}

type quadtreeLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleQuadtreeLoad(args json.RawMessage) (interface{}, error) {
	var a quadtreeLoadArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errors.New("path is required")
	}

	tree, err := store.Load(a.Path)
	if err != nil {
		return nil, err
	}

	e := s.trees.Put(tree, "", a.Path)
	s.logger.Info("quadtree loaded", zap.String("tree_id", e.ID), zap.String("path", a.Path))
	return newTreeResult(e), nil
}

type treeIDArgs struct {
	TreeID string `json:"tree_id"`
}

type releaseResult struct {
	TreeID   string `json:"tree_id"`
	Released bool   `json:"released"`
}

func (s *Server) handleQuadtreeRelease(args json.RawMessage) (interface{}, error) {
	var a treeIDArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.TreeID == "" {
		return nil, errors.New("tree_id is required")
	}
	return &releaseResult{TreeID: a.TreeID, Released: s.trees.Delete(a.TreeID)}, nil
}

// === Query Handlers ===

type quadtreeStatsArgs struct {
	TreeID    string `json:"tree_id"`
	TopColors *int   `json:"top_colors"`
}

type statsResult struct {
	treeResult
	CompressionRatio float64                  `json:"compression_ratio"`
	DominantColors   []imaging.ColorFrequency `json:"dominant_colors"`
}

func (s *Server) handleQuadtreeStats(args json.RawMessage) (interface{}, error) {
	var a quadtreeStatsArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	e, err := s.lookupTree(a.TreeID)
	if err != nil {
		return nil, err
	}

	top := defaultTopColors
	if a.TopColors != nil {
		top = *a.TopColors
	}

	result := &statsResult{treeResult: *newTreeResult(e)}
	if result.Stats.EncodedBytes > 0 {
		result.CompressionRatio = float64(result.Stats.RawBytes) / float64(result.Stats.EncodedBytes)
	}
	result.DominantColors = imaging.DominantLeafColors(e.Tree, top)
	return result, nil
}

type quadtreeLinesArgs struct {
	TreeID string `json:"tree_id"`
	Limit  *int   `json:"limit"`
}

type linesResult struct {
	TreeID    string             `json:"tree_id"`
	Width     int                `json:"width"`
	Height    int                `json:"height"`
	Total     int                `json:"total"`
	Truncated bool               `json:"truncated"`
	Segments  []quadtree.Segment `json:"segments"`
}

func (s *Server) handleQuadtreeLines(args json.RawMessage) (interface{}, error) {
	var a quadtreeLinesArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	e, err := s.lookupTree(a.TreeID)
	if err != nil {
		return nil, err
	}

	limit := defaultLineLimit
	if a.Limit != nil {
		limit = *a.Limit
	}
	if limit < 0 {
		return nil, fmt.Errorf("limit %d must not be negative", limit)
	}

	bounds := e.Tree.Bounds()
	result := &linesResult{
		TreeID:   e.ID,
		Width:    bounds.Width,
		Height:   bounds.Height,
		Segments: []quadtree.Segment{},
	}
	for seg := range e.Tree.Segments() {
		result.Total++
		if limit == 0 || len(result.Segments) < limit {
			result.Segments = append(result.Segments, seg)
		}
	}
	result.Truncated = len(result.Segments) < result.Total
	return result, nil
}

type quadtreeLeafAtArgs struct {
	TreeID string `json:"tree_id"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
}

type leafAtResult struct {
	TreeID string               `json:"tree_id"`
	X      int                  `json:"x"`
	Y      int                  `json:"y"`
	Region quadtree.Region      `json:"region"`
	Color  imaging.ColorResult  `json:"color"`
	Source *imaging.ColorResult `json:"source_color,omitempty"`
	// Deviation is the max channel distance between the leaf color and the
	// source pixel.
	Deviation *int `json:"deviation,omitempty"`
}

func (s *Server) handleQuadtreeLeafAt(args json.RawMessage) (interface{}, error) {
	var a quadtreeLeafAtArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	e, err := s.lookupTree(a.TreeID)
	if err != nil {
		return nil, err
	}

	leaf, ok := e.Tree.LeafAt(a.X, a.Y)
	if !ok {
		b := e.Tree.Bounds()
		return nil, fmt.Errorf("coordinates (%d,%d) outside tree bounds %dx%d", a.X, a.Y, b.Width, b.Height)
	}

	result := &leafAtResult{
		TreeID: e.ID,
		X:      a.X,
		Y:      a.Y,
		Region: leaf.Region(),
		Color:  imaging.DescribeColor(leaf.Color()),
	}

	if e.Source != "" {
		img, err := s.images.Load(e.Source)
		if err != nil {
			s.logger.Warn("source image unavailable", zap.String("source", e.Source), zap.Error(err))
			return result, nil
		}
		px, err := imaging.SampleColor(img, a.X, a.Y)
		if err != nil {
			return nil, err
		}
		src := imaging.DescribeColor(px)
		dev := leaf.Color().Distance(px)
		result.Source = &src
		result.Deviation = &dev
	}
	return result, nil
}

// === Visualization Handlers ===

type quadtreeRenderArgs struct {
	TreeID    string           `json:"tree_id"`
	Mode      string           `json:"mode"`
	LineColor *string          `json:"line_color"`
	LineWidth *float64         `json:"line_width"`
	Scale     int              `json:"scale"`
	Region    *quadtree.Region `json:"region"`
}

func (s *Server) handleQuadtreeRender(args json.RawMessage) (interface{}, error) {
	var a quadtreeRenderArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	e, err := s.lookupTree(a.TreeID)
	if err != nil {
		return nil, err
	}

	mode, err := imaging.ParseRenderMode(a.Mode)
	if err != nil {
		return nil, err
	}
	if a.Scale < 0 || a.Scale > maxRenderScale {
		return nil, fmt.Errorf("scale %d must be between 0 and %d", a.Scale, maxRenderScale)
	}

	// A loaded tree file can declare any size, so check before allocating.
	b := e.Tree.Bounds()
	if err := imaging.CheckRenderSize(b.Width, b.Height, 1, s.cfg.Render.MaxPixels); err != nil {
		return nil, err
	}

	style := imaging.LineStyle{Color: s.cfg.Render.LineColor, Width: s.cfg.Render.LineWidth}
	if a.LineColor != nil {
		style.Color = *a.LineColor
	}
	if a.LineWidth != nil {
		style.Width = *a.LineWidth
	}

	img, err := s.render(e, mode, style)
	if err != nil {
		return nil, err
	}
	if a.Region != nil {
		if img, err = imaging.CropRegion(img, *a.Region); err != nil {
			return nil, err
		}
	}

	if err := imaging.CheckRenderSize(img.Bounds().Dx(), img.Bounds().Dy(), a.Scale, s.cfg.Render.MaxPixels); err != nil {
		return nil, err
	}
	result, err := imaging.EncodePNG(img, a.Scale)
	if err != nil {
		return nil, err
	}
	result.Mode = string(mode)
	result.Segments = 2 * e.Tree.Stats().Internal
	return result, nil
}

// render draws e in mode. Overlay mode reads the tree's source image, so it
// is unavailable for trees loaded from tree files.
func (s *Server) render(e *TreeEntry, mode imaging.RenderMode, style imaging.LineStyle) (image.Image, error) {
	var source image.Image
	if mode == imaging.RenderOverlay {
		if e.Source == "" {
			return nil, errors.New("tree has no source image; use mode reconstruct or outlined")
		}
		img, err := s.images.Load(e.Source)
		if err != nil {
			return nil, err
		}
		source = img
	}
	return imaging.Render(source, e.Tree, mode, style)
}
