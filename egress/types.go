// Package egress contains the consumer stages, which pull the bytes out
// of the segmented buffer and write them to a sink.
package egress

import (
	"errors"

	"github.com/FerroO2000/cpy/connector"
	"github.com/FerroO2000/cpy/internal/config"
)

type buffer = connector.SegmentedBuffer

type cfg = config.Config

var (
	// ErrOpenSink is returned when the sink cannot be opened for writing.
	ErrOpenSink = errors.New("egress: cannot open sink")
	// ErrShortWrite is returned when the sink accepts fewer bytes than requested.
	ErrShortWrite = errors.New("egress: short write")
	// ErrWriteSink is returned when writing to the sink fails.
	ErrWriteSink = errors.New("egress: cannot write sink")
	// ErrCloseSink is returned when the sink cannot be synced or closed.
	ErrCloseSink = errors.New("egress: cannot close sink")
)
