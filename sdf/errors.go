package sdf

import "errors"

// ErrNilRasterizer is returned when a nil Rasterizer is wrapped or called.
var ErrNilRasterizer = errors.New("sdf: nil rasterizer")

// TaskError reports an invalid rasterization task.
type TaskError struct {
	Field  string
	Reason string
}

func (e *TaskError) Error() string {
	return "sdf: invalid task." + e.Field + ": " + e.Reason
}
