package software

import (
	"context"
	"fmt"

	"github.com/Carmen-Shannon/oxy-clustered/engine/frame"
)

// Render drives o for frames frames, advancing the light clock by step seconds
// each frame and starting at start. It stops early when ctx is cancelled.
//
// Parameters:
//   - ctx: cancels the run between frames
//   - o: the orchestrator wrapping a Backend
//   - frames: number of frames to render
//   - start: light time of the first frame
//   - step: light time between frames
//
// Returns:
//   - int: number of frames fully rendered
//   - error: the context error or the first frame error
func Render(ctx context.Context, o frame.Orchestrator, frames int, start, step float32) (int, error) {
	for i := range frames {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if err := o.RenderFrame(start + float32(i)*step); err != nil {
			return i, fmt.Errorf("frame %d: %w", i, err)
		}
	}
	return frames, nil
}
