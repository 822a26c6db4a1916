package game

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownState   = errors.New("unknown state")
	ErrDuplicateState = errors.New("state already registered")
)

// State is any value registered with a Manager. It takes part in the state
// lifecycle by implementing Preloader and Creator; both are optional.
type State any

// Preloader queues the assets a state needs. Create runs once all of them
// are loaded.
type Preloader interface {
	Preload(ctx *Context) error
}

// Creator sets the state up after its assets are loaded.
type Creator interface {
	Create(ctx *Context) error
}

type phase int

const (
	idle phase = iota
	loading
	running
)

// Manager switches between named states. A switch requested with Start
// takes effect on the next Update. Manager is not safe for concurrent use;
// it belongs to the game loop.
type Manager struct {
	ctx     *Context
	states  map[string]State
	current string
	pending string
	phase   phase
	history []string

	// OnStateChange is called when a state becomes current, before its
	// Preload. from is empty for the first state.
	OnStateChange func(from, to string)
}

func newManager(ctx *Context) *Manager {
	return &Manager{ctx: ctx, states: map[string]State{}}
}

// Add registers state under key and optionally starts it.
func (m *Manager) Add(key string, state State, autoStart bool) error {
	if key == "" {
		return errors.New("state key is required")
	}
	if _, ok := m.states[key]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateState, key)
	}
	m.states[key] = state

	if autoStart {
		return m.Start(key)
	}
	return nil
}

// Start switches to key on the next Update. A later Start before that
// Update wins.
func (m *Manager) Start(key string) error {
	if _, ok := m.states[key]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownState, key)
	}
	m.pending = key
	return nil
}

// Current returns the key of the active state, empty before the first switch.
func (m *Manager) Current() string {
	return m.current
}

// History lists every state that became current, in order.
func (m *Manager) History() []string {
	return append([]string(nil), m.history...)
}

// Settled reports whether the current state is created and no switch is
// pending.
func (m *Manager) Settled() bool {
	return m.pending == "" && m.phase != loading
}

// Update advances the manager by one frame: it performs a pending switch,
// loads at most one queued asset, and creates the state once loading is
// complete.
func (m *Manager) Update() error {
	if m.pending != "" {
		if err := m.switchTo(m.pending); err != nil {
			return err
		}
	}

	if m.phase != loading {
		return nil
	}

	if !m.ctx.Load.Done() {
		if err := m.ctx.Load.Step(); err != nil {
			return fmt.Errorf("state %s: %w", m.current, err)
		}
		return nil
	}

	m.phase = running
	if c, ok := m.states[m.current].(Creator); ok {
		if err := c.Create(m.ctx); err != nil {
			return fmt.Errorf("state %s: create: %w", m.current, err)
		}
	}
	return nil
}

func (m *Manager) switchTo(key string) error {
	from := m.current
	m.pending = ""
	m.current = key
	m.phase = loading
	m.history = append(m.history, key)

	m.ctx.World.clear()
	m.ctx.Load.reset()

	if m.OnStateChange != nil {
		m.OnStateChange(from, key)
	}

	if p, ok := m.states[key].(Preloader); ok {
		if err := p.Preload(m.ctx); err != nil {
			return fmt.Errorf("state %s: preload: %w", key, err)
		}
	}
	return nil
}
