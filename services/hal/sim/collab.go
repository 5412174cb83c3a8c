package sim

import (
	"context"
	"sync"
	"sync/atomic"
)

// Journal records the order in which collaborators were initialised.
type Journal struct {
	mu    sync.Mutex
	order []string
}

func (j *Journal) add(name string) {
	if j == nil {
		return
	}
	j.mu.Lock()
	j.order = append(j.order, name)
	j.mu.Unlock()
}

func (j *Journal) Order() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.order...)
}

// Peripheral is an externally owned subsystem (display, storage, audio,
// microphone) that either comes up or fails as a whole.
type Peripheral struct {
	Name    string
	Err     error
	Journal *Journal
	// OnInit runs inside Init before Err is returned, e.g. to issue bus
	// traffic the way a real panel driver does.
	OnInit func(ctx context.Context) error
	calls  atomic.Int32
}

func (p *Peripheral) Init(ctx context.Context) error {
	p.calls.Add(1)
	p.Journal.add(p.Name)
	if p.OnInit != nil {
		if err := p.OnInit(ctx); err != nil {
			return err
		}
	}
	return p.Err
}

func (p *Peripheral) Calls() int { return int(p.calls.Load()) }

// Screen is the handle returned by Graphics.Init.
type Screen struct {
	Width, Height int
}

// Graphics counts Advance calls.
type Graphics struct {
	Width, Height int
	Err           error
	Journal       *Journal
	inits         atomic.Int32
	advances      atomic.Int64
}

func (g *Graphics) Init(ctx context.Context) (any, error) {
	g.inits.Add(1)
	g.Journal.add("graphics")
	if g.Err != nil {
		return nil, g.Err
	}
	return &Screen{Width: g.Width, Height: g.Height}, nil
}

func (g *Graphics) Advance() { g.advances.Add(1) }

func (g *Graphics) Advances() int64 { return g.advances.Load() }
func (g *Graphics) Inits() int      { return int(g.inits.Load()) }
