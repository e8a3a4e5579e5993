// Package server implements the MCP (Model Context Protocol) server for
// region quadtree tools.
//
// The server speaks JSON-RPC 2.0 over stdio, one request per line on stdin and
// one response per line on stdout. Logs go to stderr.
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Source images:
//   - image_load: Load image and get metadata
//   - image_dimensions: Get width and height
//
// Construction and persistence:
//   - quadtree_build: Build a tree from an image, returning a tree_id
//   - quadtree_save: Write a tree file (optionally zstd compressed)
//   - quadtree_load: Read a tree file, returning a new tree_id
//   - quadtree_release: Forget a tree_id
//
// Queries:
//   - quadtree_stats: Node counts, depth, sizes and dominant leaf colors
//   - quadtree_lines: Subdivision line segments
//   - quadtree_leaf_at: The leaf covering a pixel, compared with the source
//
// Visualization:
//   - quadtree_render: Overlay, reconstruction or outlined reconstruction as PNG
//
// # State
//
// Decoded images are cached by path and trees by tree_id for the lifetime of
// the process. Trees are immutable, so concurrent tool calls may read the
// same tree. Build parameters that a tool call leaves out fall back to the
// server's configuration.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with code
// -32000, a short message and the Go error string as data. Unparseable
// request lines get a -32700 parse error response.
//
// # Usage
//
//	srv := server.New(cfg, logger, server.WithVersion(version))
//	if err := srv.Run(); err != nil {
//	    logger.Fatal("server failed", zap.Error(err))
//	}
package server
