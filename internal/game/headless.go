package game

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

var ErrNotSettled = errors.New("states did not settle")

// RunHeadless drives g without a renderer until no state switch is pending
// and the current state is created, or maxFrames have run. It returns the
// number of frames used.
func RunHeadless(ctx context.Context, g *Context, maxFrames int) (int, error) {
	log := zerolog.Ctx(ctx)

	for frame := 1; frame <= maxFrames; frame++ {
		if err := ctx.Err(); err != nil {
			return frame - 1, err
		}
		if err := g.States.Update(); err != nil {
			return frame, err
		}
		if g.States.Settled() {
			log.Info().
				Str("state", g.States.Current()).
				Int("frames", frame).
				Int("sprites", len(g.World.Sprites())).
				Msg("States settled")
			return frame, nil
		}
	}

	return maxFrames, ErrNotSettled
}
