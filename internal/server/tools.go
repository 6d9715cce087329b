package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the image file",
	}
}

func boxProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "array",
		"items":       map[string]interface{}{"type": "number"},
		"minItems":    4,
		"maxItems":    4,
		"description": description,
	}
}

func detectionsProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type": "array",
		"items": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"label":      map[string]interface{}{"type": "string"},
				"confidence": map[string]interface{}{"type": "number", "minimum": 0, "maximum": 1},
				"box":        boxProperty("[x1, y1, x2, y2] in pixels"),
			},
			"required": []string{"label", "confidence", "box"},
		},
		"description": description,
	}
}

// mergeProperties are the optional overrides shared by the merge tools.
func mergeProperties() map[string]interface{} {
	return map[string]interface{}{
		"association_threshold": map[string]interface{}{
			"type":        "number",
			"description": "IoU a primary/secondary pair must exceed to merge. Default 0.5",
			"default":     0.5,
		},
		"suppression_threshold": map[string]interface{}{
			"type":        "number",
			"description": "IoU above which the weaker of two detections is suppressed. Default 0.5",
			"default":     0.5,
		},
		"policy": map[string]interface{}{
			"type":        "string",
			"enum":        []string{"first", "best"},
			"description": "first: each primary takes the first secondary above the threshold. best: greedy highest-IoU pairing, each detection used once",
			"default":     "first",
		},
		"integer_pixels": map[string]interface{}{
			"type":        "boolean",
			"description": "Truncate merged box coordinates to whole pixels",
			"default":     false,
		},
	}
}

// detectorProperties are the tuning knobs accepted by detect_run.
func detectorProperties() map[string]interface{} {
	return map[string]interface{}{
		"min_area": map[string]interface{}{
			"type":        "integer",
			"description": "shapes/blobs: minimum bounding box area in pixels. Default 100",
			"default":     100,
		},
		"tolerance": map[string]interface{}{
			"type":        "number",
			"description": "shapes: minimum rectangularity (0-1). Default 0.8",
			"default":     0.8,
		},
		"min_radius": map[string]interface{}{
			"type":        "integer",
			"description": "shapes: minimum circle radius",
		},
		"max_radius": map[string]interface{}{
			"type":        "integer",
			"description": "shapes: maximum circle radius. Circles are only searched when set",
		},
		"threshold": map[string]interface{}{
			"type":        "number",
			"description": "blobs: luminance cut-off (0-255). Default 100",
			"default":     100,
		},
		"blur": map[string]interface{}{
			"type":        "number",
			"description": "blobs: Gaussian blur radius applied before thresholding",
		},
		"min_confidence": map[string]interface{}{
			"type":        "number",
			"description": "text: minimum region confidence. Default 0.3",
			"default":     0.3,
		},
		"language": map[string]interface{}{
			"type":        "string",
			"description": "ocr: Tesseract language code. Default 'eng'",
			"default":     "eng",
		},
		"dir": map[string]interface{}{
			"type":        "string",
			"description": "file: directory holding <image>.<name>.json detection files",
		},
	}
}

func detectorKindProperty(description, def string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"enum":        []string{"blobs", "file", "ocr", "shapes", "text"},
		"description": description,
		"default":     def,
	}
}

func merged(maps ...map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{})
	for _, m := range maps {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Basic Image Information
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions and format. The image is cached for subsequent operations.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
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
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},

		// Region Operations
		{
			Name:        "image_crop",
			Description: "Crop a rectangular region from an image and return it as base64-encoded PNG. Use this to inspect a detection up close.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"x1": map[string]interface{}{
						"type":        "integer",
						"description": "Left edge X coordinate (0-based)",
					},
					"y1": map[string]interface{}{
						"type":        "integer",
						"description": "Top edge Y coordinate (0-based)",
					},
					"x2": map[string]interface{}{
						"type":        "integer",
						"description": "Right edge X coordinate (exclusive)",
					},
					"y2": map[string]interface{}{
						"type":        "integer",
						"description": "Bottom edge Y coordinate (exclusive)",
					},
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Optional scale factor (e.g., 2.0 to double size). Default 1.0",
						"default":     1.0,
					},
				},
				"required": []string{"path", "x1", "y1", "x2", "y2"},
			},
		},
		{
			Name:        "image_edge_detect",
			Description: "Run Canny edge detection and return the edge map as base64-encoded PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"threshold_low": map[string]interface{}{
						"type":        "integer",
						"description": "Low hysteresis threshold. Default 50",
						"default":     50,
					},
					"threshold_high": map[string]interface{}{
						"type":        "integer",
						"description": "High hysteresis threshold. Default 150",
						"default":     150,
					},
				},
				"required": []string{"path"},
			},
		},

		// OCR
		{
			Name:        "image_ocr_full",
			Description: "Extract all text from an image with per-word bounding boxes and confidence.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"language": map[string]interface{}{
						"type":        "string",
						"description": "Tesseract language code. Default 'eng'",
						"default":     "eng",
					},
				},
				"required": []string{"path"},
			},
		},

		// Detectors
		{
			Name:        "detect_run",
			Description: "Run one detector on an image and return its detections as {label, confidence, box}.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": merged(detectorProperties(), map[string]interface{}{
					"path":     pathProperty(),
					"detector": detectorKindProperty("Detector to run", "shapes"),
					"min_score": map[string]interface{}{
						"type":        "number",
						"description": "Drop detections scoring below this confidence",
					},
				}),
				"required": []string{"path", "detector"},
			},
		},
		{
			Name:        "detect_hybrid",
			Description: "Run a primary and a secondary detector on an image, merge overlapping detections across the two and suppress duplicates. Returns all three lists and the merge counts, optionally with an annotated PNG of the merged result.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": merged(mergeProperties(), map[string]interface{}{
					"path":      pathProperty(),
					"primary":   detectorKindProperty("Primary detector; its labels win on merge", "shapes"),
					"secondary": detectorKindProperty("Secondary detector", "blobs"),
					"secondary_min_score": map[string]interface{}{
						"type":        "number",
						"description": "Drop secondary detections scoring below this confidence. Default 0.5",
						"default":     0.5,
					},
					"cascade": map[string]interface{}{
						"type":        "boolean",
						"description": "Run the secondary detector on a crop around each primary detection instead of the whole image",
						"default":     false,
					},
					"annotate": map[string]interface{}{
						"type":        "boolean",
						"description": "Include a base64 PNG with the merged detections drawn on the image",
						"default":     false,
					},
				}),
				"required": []string{"path"},
			},
		},

		// Detection list operations
		{
			Name:        "detections_iou",
			Description: "Compute the intersection over union of two boxes.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"a": boxProperty("First box [x1, y1, x2, y2]"),
					"b": boxProperty("Second box [x1, y1, x2, y2]"),
				},
				"required": []string{"a", "b"},
			},
		},
		{
			Name:        "detections_associate",
			Description: "Pair primary detections with overlapping secondary ones and average each pair. Unmatched primaries pass through; unmatched secondaries are dropped.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"primary":   detectionsProperty("Primary detections"),
					"secondary": detectionsProperty("Secondary detections"),
					"threshold": map[string]interface{}{
						"type":        "number",
						"description": "IoU a pair must exceed to merge. Default 0.5",
						"default":     0.5,
					},
					"policy":         mergeProperties()["policy"],
					"integer_pixels": mergeProperties()["integer_pixels"],
				},
				"required": []string{"primary", "secondary"},
			},
		},
		{
			Name:        "detections_suppress",
			Description: "Non-maximum suppression across all labels: keep detections in descending confidence, dropping any that overlap a kept one above the threshold.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"detections": detectionsProperty("Detections to filter"),
					"threshold": map[string]interface{}{
						"type":        "number",
						"description": "IoU above which a weaker detection is removed. Default 0.5",
						"default":     0.5,
					},
				},
				"required": []string{"detections"},
			},
		},
		{
			Name:        "detections_merge",
			Description: "Associate then suppress: the full merge of two detection lists, with match counts.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": merged(mergeProperties(), map[string]interface{}{
					"primary":   detectionsProperty("Primary detections"),
					"secondary": detectionsProperty("Secondary detections"),
				}),
				"required": []string{"primary", "secondary"},
			},
		},

		// Rendering
		{
			Name:        "image_annotate",
			Description: "Draw detections on an image as labelled boxes and return it as base64-encoded PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":       pathProperty(),
					"detections": detectionsProperty("Detections to draw"),
					"title": map[string]interface{}{
						"type":        "string",
						"description": "Optional caption for the top-left corner",
					},
					"line_width": map[string]interface{}{
						"type":        "number",
						"description": "Box outline width. Default 2",
						"default":     2,
					},
					"font_size": map[string]interface{}{
						"type":        "number",
						"description": "Caption size in points. Default 12",
						"default":     12,
					},
				},
				"required": []string{"path", "detections"},
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
