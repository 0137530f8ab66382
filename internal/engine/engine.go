package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/trailmap/trailmap/internal/course"
	"github.com/trailmap/trailmap/internal/graphstore"
	"github.com/trailmap/trailmap/internal/svgdoc"
)

// RenderRequest carries everything one processing run consumes. The
// completion source and registry must be immutable snapshots; the engine
// performs no I/O of its own.
type RenderRequest struct {
	SVG    string
	Record []byte

	Registry course.ModuleRegistry
	Source   course.CompletionSource
	Groups   course.GroupResolver

	UserID  string
	GroupID string

	EditMode      bool
	CoursePageURL string
}

// RenderResult is the outcome of one run.
type RenderResult struct {
	SVG       string
	Active    []string
	Completed []string
}

// Render is the entry point for one full processing run. Malformed markup is
// terminal; a malformed graph record degrades to defaults and the render
// proceeds.
func Render(ctx context.Context, req RenderRequest) (*RenderResult, error) {
	store, err := graphstore.Decode(req.Record)
	if err != nil {
		slog.Warn("graph record malformed, using defaults", "error", err)
	}

	doc, err := svgdoc.Load(req.SVG)
	if err != nil {
		return nil, fmt.Errorf("load map document: %w", err)
	}

	oracle, err := course.NewOracle(ctx, req.Source, req.Groups, req.UserID, req.GroupID)
	if err != nil {
		return nil, err
	}

	p := NewProcessor(store, doc, req.Registry, oracle, req.EditMode, req.CoursePageURL)
	out, err := p.Run()
	if err != nil {
		return nil, err
	}

	return &RenderResult{
		SVG:       out,
		Active:    p.Active(),
		Completed: p.Completed(),
	}, nil
}
