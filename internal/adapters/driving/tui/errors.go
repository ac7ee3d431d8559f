package tui

import "errors"

// ErrMissingPipelineService is returned when the pipeline service is not provided.
var ErrMissingPipelineService = errors.New("tui: pipeline service is required")

// ErrInterrupted is returned by App.Result when the user quit before the run finished.
var ErrInterrupted = errors.New("tui: analysis interrupted")
