// Package server implements the MCP (Model Context Protocol) server for the
// hybrid detector.
//
// This package provides a JSON-RPC 2.0 server that exposes the detectors and
// the merge engine as MCP tools, so an assistant can run detectors on an
// image, merge their output and inspect the result.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Logs go to stderr through logrus; stdout carries only responses.
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Basic Image Information:
//   - image_load: Load image and get metadata
//   - image_dimensions: Get width and height
//
// Region Operations:
//   - image_crop: Extract rectangular region
//   - image_edge_detect: Canny edge detection
//
// OCR Operations:
//   - image_ocr_full: Extract all text with word boxes
//
// Detectors:
//   - detect_run: Run one detector (shapes, blobs, text, ocr, file)
//   - detect_hybrid: Run two detectors, merge and suppress
//
// Detection Lists:
//   - detections_iou: Intersection over union of two boxes
//   - detections_associate: Cross-model pairing and averaging
//   - detections_suppress: Class-agnostic non-maximum suppression
//   - detections_merge: Associate then suppress, with counts
//
// Rendering:
//   - image_annotate: Draw labelled boxes on an image
//
// Detections travel as {"label", "confidence", "box": [x1, y1, x2, y2]}.
// Thresholds, match policy and pixel mode default to the server Options and
// may be overridden per call.
//
// # Image Caching
//
// The server maintains an in-memory cache of loaded images. Images are cached
// by path and reused across multiple tool calls, avoiding redundant disk I/O.
// The cache persists for the lifetime of the server process.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure), -32602 (malformed params) or
//     -32601 (unknown method)
//   - message: Human-readable error description
//   - data: The Go error string
//
// # Usage
//
//	srv := server.New(server.Options{Logger: logger})
//	if err := srv.Run(ctx); err != nil {
//	    logger.Fatal(err)
//	}
package server
