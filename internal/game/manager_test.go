package game

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeState records its callbacks and queues assets.
type fakeState struct {
	key    string
	assets map[string]string
	next   string
	events *[]string
	err    error
}

func (s *fakeState) Preload(ctx *Context) error {
	*s.events = append(*s.events, s.key+".preload")
	for k, p := range s.assets {
		ctx.Load.Image(k, p)
	}
	return nil
}

func (s *fakeState) Create(ctx *Context) error {
	for k := range s.assets {
		if _, ok := ctx.Load.Get(k); !ok {
			return errors.New("create ran before " + k + " loaded")
		}
	}
	*s.events = append(*s.events, s.key+".create")
	if s.err != nil {
		return s.err
	}
	if s.next != "" {
		return ctx.States.Start(s.next)
	}
	return nil
}

// createOnly implements Creator but not Preloader.
type createOnly struct{ created int }

func (c *createOnly) Create(ctx *Context) error {
	c.created++
	return nil
}

func TestManager_chain(t *testing.T) {
	g := New(800, 600, testAssets(t))
	var events []string

	require.NoError(t, g.States.Add("first", &fakeState{key: "first", next: "second", events: &events,
		assets: map[string]string{"loadbar": "assets/images/loadbar.png"}}, false))
	require.NoError(t, g.States.Add("second", &fakeState{key: "second", events: &events,
		assets: map[string]string{"a": "assets/images/phaser.png", "b": "assets/images/phaser.png"}}, false))

	var changes [][2]string
	g.States.OnStateChange = func(from, to string) { changes = append(changes, [2]string{from, to}) }

	assert.Empty(t, g.States.Current())
	require.NoError(t, g.States.Start("first"))
	assert.Empty(t, g.States.Current(), "start takes effect on the next update")

	frames, err := RunHeadless(context.Background(), g, 100)
	require.NoError(t, err)

	assert.Equal(t, []string{"first.preload", "first.create", "second.preload", "second.create"}, events)
	assert.Equal(t, []string{"first", "second"}, g.States.History())
	assert.Equal(t, [][2]string{{"", "first"}, {"first", "second"}}, changes)
	assert.Equal(t, "second", g.States.Current())
	// One frame per asset, plus the frames that switch and create.
	assert.Equal(t, 5, frames)
}

func TestManager_switchClearsWorld(t *testing.T) {
	g := New(800, 600, testAssets(t))
	var events []string

	require.NoError(t, g.States.Add("next", &fakeState{key: "next", events: &events}, false))
	require.NoError(t, g.States.Add("one", &createOnly{}, true))
	require.NoError(t, g.States.Update())

	g.Add.Sprite(0, 0, "x")
	require.Len(t, g.World.Sprites(), 1)

	require.NoError(t, g.States.Start("next"))
	require.NoError(t, g.States.Update())
	assert.Empty(t, g.World.Sprites())
}

func TestManager_optionalCallbacks(t *testing.T) {
	g := New(800, 600, testAssets(t))
	c := &createOnly{}

	require.NoError(t, g.States.Add("plain", struct{}{}, false))
	require.NoError(t, g.States.Add("create", c, false))

	require.NoError(t, g.States.Start("plain"))
	require.NoError(t, g.States.Update())
	assert.True(t, g.States.Settled())
	assert.Equal(t, "plain", g.States.Current())

	require.NoError(t, g.States.Start("create"))
	require.NoError(t, g.States.Update())
	require.NoError(t, g.States.Update())
	assert.Equal(t, 1, c.created, "create runs once")
}

func TestManager_lastStartWins(t *testing.T) {
	g := New(800, 600, testAssets(t))
	require.NoError(t, g.States.Add("a", struct{}{}, false))
	require.NoError(t, g.States.Add("b", struct{}{}, false))

	require.NoError(t, g.States.Start("a"))
	require.NoError(t, g.States.Start("b"))
	require.NoError(t, g.States.Update())

	assert.Equal(t, []string{"b"}, g.States.History())
}

func TestManager_errors(t *testing.T) {
	t.Run("duplicate", func(t *testing.T) {
		g := New(800, 600, testAssets(t))
		require.NoError(t, g.States.Add("boot", struct{}{}, false))
		require.ErrorIs(t, g.States.Add("boot", struct{}{}, false), ErrDuplicateState)
	})

	t.Run("unknown", func(t *testing.T) {
		g := New(800, 600, testAssets(t))
		require.ErrorIs(t, g.States.Start("nope"), ErrUnknownState)
	})

	t.Run("empty key", func(t *testing.T) {
		g := New(800, 600, testAssets(t))
		require.Error(t, g.States.Add("", struct{}{}, false))
	})

	t.Run("asset failure", func(t *testing.T) {
		g := New(800, 600, testAssets(t))
		var events []string
		require.NoError(t, g.States.Add("bad", &fakeState{key: "bad", events: &events,
			assets: map[string]string{"gone": "assets/images/gone.png"}}, true))

		_, err := RunHeadless(context.Background(), g, 10)
		require.ErrorIs(t, err, ErrAssetNotFound)
		assert.Contains(t, err.Error(), "state bad")
		assert.Equal(t, []string{"bad.preload"}, events)
	})

	t.Run("create failure", func(t *testing.T) {
		g := New(800, 600, testAssets(t))
		var events []string
		boom := errors.New("boom")
		require.NoError(t, g.States.Add("bad", &fakeState{key: "bad", events: &events, err: boom}, true))

		err := g.States.Update()
		require.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "state bad: create")
	})

	t.Run("never settles", func(t *testing.T) {
		g := New(800, 600, testAssets(t))
		var events []string
		require.NoError(t, g.States.Add("ping", &fakeState{key: "ping", next: "pong", events: &events}, true))
		require.NoError(t, g.States.Add("pong", &fakeState{key: "pong", next: "ping", events: &events}, false))

		frames, err := RunHeadless(context.Background(), g, 6)
		require.ErrorIs(t, err, ErrNotSettled)
		assert.Equal(t, 6, frames)
	})
}
