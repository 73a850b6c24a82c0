package software

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"

	"github.com/Carmen-Shannon/oxy-clustered/engine/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// PNGWriter is a Presenter that encodes frames to numbered PNG files.
// Encoding runs in the background; Close waits for pending writes.
type PNGWriter struct {
	dir     string
	pattern string
	g       errgroup.Group
	mu      sync.Mutex
	written []string
	logger  *zap.Logger
}

var _ Presenter = &PNGWriter{}

// NewPNGWriter creates a PNGWriter writing into dir, creating it when missing.
//
// Parameters:
//   - dir: the output directory
//   - inFlight: maximum number of frames encoded at once, below 1 means unlimited
//   - l: the logger; nil falls back to the global logger
//
// Returns:
//   - *PNGWriter: the writer
//   - error: error if the directory cannot be created
func NewPNGWriter(dir string, inFlight int, l *zap.Logger) (*PNGWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	w := &PNGWriter{
		dir:     dir,
		pattern: "frame_%04d.png",
		logger:  logger.Named(l, "png"),
	}
	if inFlight > 0 {
		w.g.SetLimit(inFlight)
	}
	return w, nil
}

func (w *PNGWriter) Present(index uint64, img *image.RGBA) error {
	frame := image.NewRGBA(img.Rect)
	copy(frame.Pix, img.Pix)
	path := filepath.Join(w.dir, fmt.Sprintf(w.pattern, index))

	w.g.Go(func() error {
		if err := writePNG(path, frame); err != nil {
			w.logger.Error("failed to write frame", zap.String("path", path), zap.Error(err))
			return err
		}
		w.mu.Lock()
		w.written = append(w.written, path)
		w.mu.Unlock()
		return nil
	})
	return nil
}

// Written returns the paths finished so far, in completion order.
func (w *PNGWriter) Written() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.written...)
}

// Close waits for every pending write and returns the first error.
func (w *PNGWriter) Close() error {
	return w.g.Wait()
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
