// Package ingress contains the producer stages, which read a source
// and push its bytes into the segmented buffer.
package ingress

import (
	"errors"

	"github.com/FerroO2000/cpy/connector"
	"github.com/FerroO2000/cpy/internal/config"
)

type buffer = connector.SegmentedBuffer

type cfg = config.Config

var (
	// ErrOpenSource is returned when the source cannot be opened for reading.
	ErrOpenSource = errors.New("ingress: cannot open source")
	// ErrReadSource is returned when reading the source fails.
	ErrReadSource = errors.New("ingress: cannot read source")
)
