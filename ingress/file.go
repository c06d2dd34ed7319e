package ingress

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/FerroO2000/cpy/internal/config"
)

//////////////////
//  FILE STAGE  //
//////////////////

var _ cfg = (*FileStage)(nil)

// FileStage is a producer stage reading a file.
type FileStage struct {
	*stage

	path string
}

// NewFileStage returns a new producer stage reading the file at the given path.
func NewFileStage(buf *buffer, path string, cfg *Config) *FileStage {
	return &FileStage{
		stage: newStage("file", buf, cfg),

		path: path,
	}
}

// Validate checks the path of the file.
func (fs *FileStage) Validate(ac *config.AnomalyCollector) {
	config.CheckNotEmpty(ac, "Path", fs.path)
}

// Init opens the file as read-only.
// It returns ErrOpenSource if the file cannot be opened.
func (fs *FileStage) Init(_ context.Context) error {
	if err := config.NewValidator(fs.tel).Validate(fs); err != nil {
		return fmt.Errorf("%w: %w", ErrOpenSource, err)
	}

	file, err := os.Open(fs.path)
	if err != nil {
		fs.tel.LogError("failed to open source", err, "path", fs.path)
		return fmt.Errorf("%w: %w", ErrOpenSource, err)
	}

	if err := fs.stage.init(file); err != nil {
		file.Close()
		return err
	}

	fs.tel.LogInfo("source opened", "path", fs.path)

	return nil
}

////////////////////
//  READER STAGE  //
////////////////////

// ReaderStage is a producer stage reading from a generic reader (e.g. stdin).
// The reader is not closed by the stage.
type ReaderStage struct {
	*stage

	reader io.Reader
}

// NewReaderStage returns a new producer stage reading from the given reader.
func NewReaderStage(buf *buffer, reader io.Reader, cfg *Config) *ReaderStage {
	return &ReaderStage{
		stage: newStage("reader", buf, cfg),

		reader: reader,
	}
}

// Init initializes the stage.
func (rs *ReaderStage) Init(_ context.Context) error {
	return rs.stage.init(io.NopCloser(rs.reader))
}
