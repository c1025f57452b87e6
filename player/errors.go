package player

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a named sink or element is absent from
	// the current pipeline.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument is returned for empty names and nil handlers.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrConfiguration is returned when a pipeline element cannot be
	// reconfigured as requested.
	ErrConfiguration = errors.New("configuration error")
	// ErrNoPipeline is returned by operations that need a built pipeline.
	ErrNoPipeline = errors.New("no pipeline")
)

// ParseError reports a pipeline description the engine refused to parse.
// The previous pipeline has already been torn down when it is returned.
type ParseError struct {
	Description string
	Err         error
}

func (p *ParseError) Error() string {
	return fmt.Sprintf("failed to parse pipeline %q: %v", p.Description, p.Err)
}

func (p *ParseError) Unwrap() error {
	return p.Err
}
