package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrDimensionMismatch is returned when a vector's length does not
	// match the dimension fixed by the index's first insert.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrEmptyResponse is returned when the generator produces no text.
	ErrEmptyResponse = errors.New("generator returned empty response")
)

// ConfigError reports an invalid configuration value. It is surfaced
// before any processing begins and is never retried.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config %s: %s", e.Field, e.Reason)
}

// Stage identifies one step of the answer pipeline.
type Stage string

const (
	StageEmbedding  Stage = "embedding"
	StageRetrieving Stage = "retrieving"
	StageComposing  Stage = "composing"
	StageGenerating Stage = "generating"
	StageParsing    Stage = "parsing"
)

// PipelineError wraps a failure from one pipeline stage so callers can
// decide on retry knowing where the run stopped.
type PipelineError struct {
	Stage Stage
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}
