package session

import (
	"context"
	"errors"
	"image"
	"time"

	"screen-select/src/geometry"
	"screen-select/src/worker"
)

// RegionSelectorFunc runs an interactive selection and returns the region in
// physical pixels. cancelled is set when the user backed out.
type RegionSelectorFunc func(ctx context.Context) (region geometry.Rect, cancelled bool, err error)

// ResultTarget receives the captured image, or the reason there is none.
type ResultTarget interface {
	OnSuccess(img *image.RGBA, region geometry.Rect) error
	OnFailure(err error) error
}

type ExecuteOptions struct {
	Deadline     time.Duration
	SelectRegion RegionSelectorFunc
	Capture      worker.CaptureFunc
	Target       ResultTarget
}

// Capture is a finished selection with its pixels.
type Capture struct {
	Region geometry.Rect
	Image  *image.RGBA
}

// Execute runs one select, capture, deliver cycle.
func Execute(ctx context.Context, opts ExecuteOptions) (Capture, error) {
	if opts.SelectRegion == nil {
		return Capture{}, errors.New("SelectRegion is required")
	}
	if opts.Target == nil {
		return Capture{}, errors.New("Target is required")
	}

	region, cancelled, err := opts.SelectRegion(ctx)
	if err != nil {
		_ = opts.Target.OnFailure(err)
		return Capture{}, err
	}
	if cancelled {
		_ = opts.Target.OnFailure(ErrSelectionCancelled)
		return Capture{}, ErrSelectionCancelled
	}

	deadline := opts.Deadline
	if deadline <= 0 {
		deadline = 10 * time.Second
	}
	capture := opts.Capture
	if capture == nil {
		capture = worker.CaptureWithContext
	}

	jobCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	img, err := capture(jobCtx, region)
	if err != nil {
		_ = opts.Target.OnFailure(err)
		return Capture{}, err
	}
	if err := opts.Target.OnSuccess(img, region); err != nil {
		_ = opts.Target.OnFailure(err)
		return Capture{}, err
	}
	return Capture{Region: region, Image: img}, nil
}
