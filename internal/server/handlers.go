package server

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ironsheep/hybrid-detect/internal/capture"
	"github.com/ironsheep/hybrid-detect/internal/detection"
	"github.com/ironsheep/hybrid-detect/internal/detectors"
	"github.com/ironsheep/hybrid-detect/internal/imaging"
	"github.com/ironsheep/hybrid-detect/internal/logging"
	"github.com/ironsheep/hybrid-detect/internal/ocr"
	"github.com/ironsheep/hybrid-detect/internal/pipeline"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "detect_hybrid").
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
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	start := time.Now()
	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	log := s.logger.WithFields(logging.Fields{"tool": params.Name, "elapsed": time.Since(start)})
	if err != nil {
		log.Warnf("tool failed: %v", err)
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}
	log.Debug("tool call")

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
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Basic Image Information
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)

	// Region Operations
	case "image_crop":
		return s.handleImageCrop(args)
	case "image_edge_detect":
		return s.handleImageEdgeDetect(args)

	// OCR
	case "image_ocr_full":
		return s.handleImageOCRFull(args)

	// Detectors
	case "detect_run":
		return s.handleDetectRun(ctx, args)
	case "detect_hybrid":
		return s.handleDetectHybrid(ctx, args)

	// Detection list operations
	case "detections_iou":
		return s.handleDetectionsIoU(args)
	case "detections_associate":
		return s.handleDetectionsAssociate(args)
	case "detections_suppress":
		return s.handleDetectionsSuppress(args)
	case "detections_merge":
		return s.handleDetectionsMerge(args)

	// Rendering
	case "image_annotate":
		return s.handleImageAnnotate(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// parseDetections validates wire records. Unlike detection.FromRecords it
// rejects the whole call when any record is invalid.
func parseDetections(field string, records []detection.Record) (detection.List, error) {
	list, err := detection.FromRecords(records)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", field, err)
	}
	return list, nil
}

// requireBox returns the decoded box, or an error when the argument was absent.
// Coordinates were already validated by detection.Box's decoder.
func requireBox(field string, b *detection.Box) (detection.Box, error) {
	if b == nil {
		return detection.Box{}, fmt.Errorf("missing %s: %w", field, detection.ErrMalformedBox)
	}
	return *b, nil
}

// === Basic Image Information Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.GetDimensions(s.cache, a.Path)
}

// === Region Operation Handlers ===

type imageCropArgs struct {
	Path  string  `json:"path"`
	X1    int     `json:"x1"`
	Y1    int     `json:"y1"`
	X2    int     `json:"x2"`
	Y2    int     `json:"y2"`
	Scale float64 `json:"scale"`
}

func (s *Server) handleImageCrop(args json.RawMessage) (interface{}, error) {
	var a imageCropArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.Crop(img, a.X1, a.Y1, a.X2, a.Y2, a.Scale)
}

type imageEdgeDetectArgs struct {
	Path          string `json:"path"`
	ThresholdLow  int    `json:"threshold_low"`
	ThresholdHigh int    `json:"threshold_high"`
}

func (s *Server) handleImageEdgeDetect(args json.RawMessage) (interface{}, error) {
	var a imageEdgeDetectArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.ThresholdLow == 0 {
		a.ThresholdLow = imaging.DefaultEdgeLow
	}
	if a.ThresholdHigh == 0 {
		a.ThresholdHigh = imaging.DefaultEdgeHigh
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.EdgeDetect(img, a.ThresholdLow, a.ThresholdHigh)
}

// === OCR Handlers ===

type imageOCRFullArgs struct {
	Path     string `json:"path"`
	Language string `json:"language"`
}

func (s *Server) handleImageOCRFull(args json.RawMessage) (interface{}, error) {
	var a imageOCRFullArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Language == "" {
		a.Language = s.opts.Detector.Language
	}
	return ocr.ExtractText(a.Path, a.Language)
}

// === Detector Handlers ===

type detectorArgs struct {
	MinArea       int     `json:"min_area"`
	Tolerance     float64 `json:"tolerance"`
	MinRadius     int     `json:"min_radius"`
	MaxRadius     int     `json:"max_radius"`
	Threshold     float64 `json:"threshold"`
	Blur          float64 `json:"blur"`
	MinConfidence float64 `json:"min_confidence"`
	Language      string  `json:"language"`
	Dir           string  `json:"dir"`
}

func (s *Server) detectorOptions(a detectorArgs) detectors.Options {
	opts := detectors.Options{
		MinArea:       a.MinArea,
		Tolerance:     a.Tolerance,
		MinRadius:     a.MinRadius,
		MaxRadius:     a.MaxRadius,
		Threshold:     a.Threshold,
		Blur:          a.Blur,
		MinConfidence: a.MinConfidence,
		Language:      a.Language,
		Dir:           a.Dir,
		Logger:        s.logger,
	}
	if opts.Language == "" {
		opts.Language = s.opts.Detector.Language
	}
	if opts.Dir == "" {
		opts.Dir = s.opts.Detector.Dir
	}
	return opts
}

// frame loads path through the cache and names the frame after the file.
func (s *Server) frame(path string) (capture.Frame, error) {
	img, err := s.cache.Load(path)
	if err != nil {
		return capture.Frame{}, err
	}
	return capture.Frame{Name: filepath.Base(path), Image: img}, nil
}

type detectRunArgs struct {
	detectorArgs
	Path     string  `json:"path"`
	Detector string  `json:"detector"`
	MinScore float64 `json:"min_score"`
}

// DetectRunResult is returned by detect_run.
type DetectRunResult struct {
	Detector   string         `json:"detector"`
	Count      int            `json:"count"`
	Detections detection.List `json:"detections"`
}

func (s *Server) handleDetectRun(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a detectRunArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Detector == "" {
		a.Detector = "shapes"
	}

	d, err := detectors.New(a.Detector, s.detectorOptions(a.detectorArgs))
	if err != nil {
		return nil, err
	}
	frame, err := s.frame(a.Path)
	if err != nil {
		return nil, err
	}

	list, err := detectors.MinScore(d, a.MinScore).Detect(ctx, frame)
	if err != nil {
		return nil, err
	}
	return &DetectRunResult{Detector: d.Name(), Count: len(list), Detections: list}, nil
}

// mergeArgs are optional overrides of the server's merge options.
type mergeArgs struct {
	AssociationThreshold *float64 `json:"association_threshold"`
	SuppressionThreshold *float64 `json:"suppression_threshold"`
	Policy               string   `json:"policy"`
	IntegerPixels        *bool    `json:"integer_pixels"`
}

func (s *Server) merger(a mergeArgs) (*detection.Merger, error) {
	opts := s.opts.Merge
	if a.AssociationThreshold != nil {
		opts.AssociationThreshold = *a.AssociationThreshold
	}
	if a.SuppressionThreshold != nil {
		opts.SuppressionThreshold = *a.SuppressionThreshold
	}
	if a.Policy != "" {
		policy, err := detection.ParseMatchPolicy(a.Policy)
		if err != nil {
			return nil, err
		}
		opts.Policy = policy
	}
	if a.IntegerPixels != nil {
		opts.IntegerPixels = *a.IntegerPixels
	}
	return detection.NewMerger(opts)
}

type detectHybridArgs struct {
	mergeArgs
	Path              string   `json:"path"`
	Primary           string   `json:"primary"`
	Secondary         string   `json:"secondary"`
	SecondaryMinScore *float64 `json:"secondary_min_score"`
	Cascade           bool     `json:"cascade"`
	Annotate          bool     `json:"annotate"`
}

// DetectHybridResult is returned by detect_hybrid.
type DetectHybridResult struct {
	*pipeline.FrameResult
	Annotated *imaging.EncodedImage `json:"annotated,omitempty"`
}

func (s *Server) handleDetectHybrid(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a detectHybridArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Primary == "" {
		a.Primary = "shapes"
	}
	if a.Secondary == "" {
		a.Secondary = "blobs"
	}
	minScore := s.opts.SecondaryMinScore
	if a.SecondaryMinScore != nil {
		minScore = *a.SecondaryMinScore
	}

	primaryOpts, secondaryOpts := s.detectorOptions(detectorArgs{}), s.detectorOptions(detectorArgs{})
	if a.Primary == "file" {
		primaryOpts.Name = "primary"
	}
	if a.Secondary == "file" {
		secondaryOpts.Name = "secondary"
	}
	primary, err := detectors.New(a.Primary, primaryOpts)
	if err != nil {
		return nil, fmt.Errorf("primary detector: %w", err)
	}
	secondary, err := detectors.New(a.Secondary, secondaryOpts)
	if err != nil {
		return nil, fmt.Errorf("secondary detector: %w", err)
	}
	merger, err := s.merger(a.mergeArgs)
	if err != nil {
		return nil, err
	}

	frame, err := s.frame(a.Path)
	if err != nil {
		return nil, err
	}

	runner := &pipeline.Runner{
		Primary:   primary,
		Secondary: detectors.MinScore(secondary, minScore),
		Merger:    merger,
		Cascade:   a.Cascade,
		Logger:    s.logger,
	}
	res, err := runner.ProcessFrame(ctx, frame)
	if err != nil {
		return nil, err
	}

	out := &DetectHybridResult{FrameResult: res}
	if a.Annotate {
		out.Annotated, err = imaging.EncodePNGBase64(imaging.Annotate(frame.Image, res.Merged, imaging.AnnotateOptions{Title: "hybrid"}))
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// === Detection List Handlers ===

type detectionsIoUArgs struct {
	A *detection.Box `json:"a"`
	B *detection.Box `json:"b"`
}

func (s *Server) handleDetectionsIoU(args json.RawMessage) (interface{}, error) {
	var a detectionsIoUArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	boxA, err := requireBox("a", a.A)
	if err != nil {
		return nil, err
	}
	boxB, err := requireBox("b", a.B)
	if err != nil {
		return nil, err
	}
	return map[string]float64{"iou": detection.IoU(boxA, boxB)}, nil
}

type detectionsAssociateArgs struct {
	Primary       []detection.Record `json:"primary"`
	Secondary     []detection.Record `json:"secondary"`
	Threshold     *float64           `json:"threshold"`
	Policy        string             `json:"policy"`
	IntegerPixels *bool              `json:"integer_pixels"`
}

func (s *Server) handleDetectionsAssociate(args json.RawMessage) (interface{}, error) {
	var a detectionsAssociateArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	primary, err := parseDetections("primary", a.Primary)
	if err != nil {
		return nil, err
	}
	secondary, err := parseDetections("secondary", a.Secondary)
	if err != nil {
		return nil, err
	}

	// Validation is shared with the merger; its suppression threshold is unused.
	m, err := s.merger(mergeArgs{AssociationThreshold: a.Threshold, Policy: a.Policy, IntegerPixels: a.IntegerPixels})
	if err != nil {
		return nil, err
	}
	opts := m.Options()
	assoc := detection.Associator{
		Threshold:     opts.AssociationThreshold,
		Policy:        opts.Policy,
		IntegerPixels: opts.IntegerPixels,
	}
	return assoc.Associate(primary, secondary), nil
}

type detectionsSuppressArgs struct {
	Detections []detection.Record `json:"detections"`
	Threshold  *float64           `json:"threshold"`
}

// SuppressResult is returned by detections_suppress.
type SuppressResult struct {
	Detections detection.List `json:"detections"`
	Count      int            `json:"count"`
	Suppressed int            `json:"suppressed"`
}

func (s *Server) handleDetectionsSuppress(args json.RawMessage) (interface{}, error) {
	var a detectionsSuppressArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	list, err := parseDetections("detections", a.Detections)
	if err != nil {
		return nil, err
	}
	threshold := s.opts.Merge.SuppressionThreshold
	if a.Threshold != nil {
		threshold = *a.Threshold
	}
	if !detection.ValidThreshold(threshold) {
		return nil, fmt.Errorf("threshold %v outside [0,1]", threshold)
	}

	kept := detection.Suppress(list, threshold)
	return &SuppressResult{Detections: kept, Count: len(kept), Suppressed: len(list) - len(kept)}, nil
}

type detectionsMergeArgs struct {
	mergeArgs
	Primary   []detection.Record `json:"primary"`
	Secondary []detection.Record `json:"secondary"`
}

func (s *Server) handleDetectionsMerge(args json.RawMessage) (interface{}, error) {
	var a detectionsMergeArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	primary, err := parseDetections("primary", a.Primary)
	if err != nil {
		return nil, err
	}
	secondary, err := parseDetections("secondary", a.Secondary)
	if err != nil {
		return nil, err
	}
	m, err := s.merger(a.mergeArgs)
	if err != nil {
		return nil, err
	}
	return m.Merge(primary, secondary), nil
}

// === Rendering Handlers ===

type imageAnnotateArgs struct {
	Path       string             `json:"path"`
	Detections []detection.Record `json:"detections"`
	Title      string             `json:"title"`
	LineWidth  float64            `json:"line_width"`
	FontSize   float64            `json:"font_size"`
}

func (s *Server) handleImageAnnotate(args json.RawMessage) (interface{}, error) {
	var a imageAnnotateArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	list, err := parseDetections("detections", a.Detections)
	if err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.EncodePNGBase64(imaging.Annotate(img, list, imaging.AnnotateOptions{
		LineWidth: a.LineWidth,
		FontSize:  a.FontSize,
		Title:     a.Title,
	}))
}
