package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

var treeIDProperty = map[string]interface{}{
	"type":        "string",
	"description": "Tree handle returned by quadtree_build or quadtree_load",
}

var pathProperty = map[string]interface{}{
	"type":        "string",
	"description": "Absolute path to the image file",
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Source images
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions and format. Supports PNG, JPEG, GIF, QOI and PPM.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of an image file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},

		// Construction and persistence
		{
			Name: "quadtree_build",
			Description: "Build a region quadtree from an image. Regions whose pixels are all within the tolerance " +
				"of their mean color become single leaves; other regions split into four quadrants. " +
				"Returns a tree_id handle plus node statistics.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
					"tolerance": map[string]interface{}{
						"type":        "number",
						"description": "Homogeneity tolerance. 0 keeps only exactly uniform regions. Units depend on the metric: channel levels (maxchannel), squared levels (variance) or delta E (lab).",
						"minimum":     0,
					},
					"min_leaf_size": map[string]interface{}{
						"type":        "integer",
						"description": "Regions whose width or height is at most this many pixels are never split. Default 1",
						"minimum":     1,
					},
					"metric": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"maxchannel", "variance", "lab"},
						"description": "Homogeneity metric. Default maxchannel",
					},
					"blur_sigma": map[string]interface{}{
						"type":        "number",
						"description": "Gaussian blur radius applied before building; merges noisy areas. Default 0 (off)",
						"minimum":     0,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "quadtree_save",
			Description: "Write a tree to a file in the compact binary tree format, optionally zstd compressed.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"tree_id": treeIDProperty,
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path of the tree file to write",
					},
					"compress": map[string]interface{}{
						"type":        "boolean",
						"description": "Compress with zstd. Defaults to the server's store.compress setting",
					},
				},
				"required": []string{"tree_id", "path"},
			},
		},
		{
			Name:        "quadtree_load",
			Description: "Read a tree file written by quadtree_save and return a new tree_id handle.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path of the tree file",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "quadtree_release",
			Description: "Forget a tree handle and free its memory.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"tree_id": treeIDProperty,
				},
				"required": []string{"tree_id"},
			},
		},

		// Queries
		{
			Name:        "quadtree_stats",
			Description: "Report node counts, depth, encoded size and the dominant leaf colors of a tree.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"tree_id": treeIDProperty,
					"top_colors": map[string]interface{}{
						"type":        "integer",
						"description": "Number of dominant leaf colors to report. Default 5",
						"default":     5,
					},
				},
				"required": []string{"tree_id"},
			},
		},
		{
			Name:        "quadtree_lines",
			Description: "List the subdivision line segments of a tree in pixel edge coordinates. Each split contributes one horizontal and one vertical segment.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"tree_id": treeIDProperty,
					"limit": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum number of segments to return. Default 1000; 0 returns all",
						"default":     1000,
					},
				},
				"required": []string{"tree_id"},
			},
		},
		{
			Name:        "quadtree_leaf_at",
			Description: "Find the leaf covering a pixel and compare its color with the source pixel when the source image is known.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"tree_id": treeIDProperty,
					"x": map[string]interface{}{
						"type":        "integer",
						"description": "X coordinate (0-based, from left)",
					},
					"y": map[string]interface{}{
						"type":        "integer",
						"description": "Y coordinate (0-based, from top)",
					},
				},
				"required": []string{"tree_id", "x", "y"},
			},
		},

		// Visualization
		{
			Name:        "quadtree_render",
			Description: "Render a tree as a base64-encoded PNG: subdivision lines over the source image, the leaf reconstruction, or the reconstruction with lines.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"tree_id": treeIDProperty,
					"mode": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"overlay", "reconstruct", "outlined"},
						"description": "What to draw. Default overlay, which needs the tree's source image",
					},
					"line_color": map[string]interface{}{
						"type":        "string",
						"description": "Line color in hex (#RRGGBB or #RRGGBBAA). Defaults to the server's render.line_color",
					},
					"line_width": map[string]interface{}{
						"type":        "number",
						"description": "Line width in pixels. Defaults to the server's render.line_width",
					},
					"scale": map[string]interface{}{
						"type":        "integer",
						"description": "Integer upscale factor applied after rendering. Default 1",
						"default":     1,
					},
					"region": map[string]interface{}{
						"type":        "object",
						"description": "Optional area to crop from the rendering",
						"properties": map[string]interface{}{
							"x":      map[string]interface{}{"type": "integer"},
							"y":      map[string]interface{}{"type": "integer"},
							"width":  map[string]interface{}{"type": "integer"},
							"height": map[string]interface{}{"type": "integer"},
						},
					},
				},
				"required": []string{"tree_id"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
