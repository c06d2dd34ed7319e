package egress

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

// DefaultFileMode is the permission set of the files created by the file stage.
const DefaultFileMode os.FileMode = 0o644

var _ cfg = (*FileStage)(nil)

// FileStage is a consumer stage writing a file.
// The file is created if missing and truncated otherwise.
type FileStage struct {
	*stage

	path string
	mode os.FileMode
}

// NewFileStage returns a new consumer stage writing the file at the given path.
func NewFileStage(buf *buffer, path string, cfg *Config) *FileStage {
	return &FileStage{
		stage: newStage("file", buf, cfg),

		path: path,
		mode: DefaultFileMode,
	}
}

// SetMode sets the permissions used when the file is created.
func (fs *FileStage) SetMode(mode os.FileMode) {
	fs.mode = mode
}

// Validate checks the path and the mode of the file.
func (fs *FileStage) Validate(ac *config.AnomalyCollector) {
	config.CheckNotEmpty(ac, "Path", fs.path)
	config.CheckNotZero(ac, "Mode", &fs.mode, DefaultFileMode)
}

// Init opens the file for writing, creating or truncating it.
// It returns ErrOpenSink if the file cannot be opened.
func (fs *FileStage) Init(_ context.Context) error {
	if err := config.NewValidator(fs.tel).Validate(fs); err != nil {
		return fmt.Errorf("%w: %w", ErrOpenSink, err)
	}

	file, err := os.OpenFile(fs.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fs.mode)
	if err != nil {
		fs.tel.LogError("failed to open sink", err, "path", fs.path)
		return fmt.Errorf("%w: %w", ErrOpenSink, err)
	}

	closeFile := func() error {
		if err := file.Sync(); err != nil {
			file.Close()
			return fmt.Errorf("%w: %w", ErrCloseSink, err)
		}

		if err := file.Close(); err != nil {
			return fmt.Errorf("%w: %w", ErrCloseSink, err)
		}

		return nil
	}

	if err := fs.stage.init(file, closeFile); err != nil {
		file.Close()
		return err
	}

	fs.tel.LogInfo("sink opened", "path", fs.path)

	return nil
}

////////////////////
//  WRITER STAGE  //
////////////////////

// WriterStage is a consumer stage writing to a generic writer (e.g. stdout).
// The writer is not closed by the stage.
type WriterStage struct {
	*stage

	writer io.Writer
}

// NewWriterStage returns a new consumer stage writing to the given writer.
func NewWriterStage(buf *buffer, writer io.Writer, cfg *Config) *WriterStage {
	return &WriterStage{
		stage: newStage("writer", buf, cfg),

		writer: writer,
	}
}

// Init initializes the stage.
func (ws *WriterStage) Init(_ context.Context) error {
	return ws.stage.init(ws.writer, nil)
}
