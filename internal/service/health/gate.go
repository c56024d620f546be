// Package health derives the backend availability gate from /health probes.
// The gate only blocks outbound mutations; read paths and already-rendered
// state are never touched by a probe result.
package health

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Prober is the slice of the backend client the gate needs.
type Prober interface {
	Health(ctx context.Context) error
}

// Gate reflects the most recent probe result.
type Gate struct {
	mu        sync.RWMutex
	prober    Prober
	reachable bool
	log       zerolog.Logger
}

// NewGate starts closed; callers should Check once at startup.
func NewGate(prober Prober, log zerolog.Logger) *Gate {
	return &Gate{
		prober: prober,
		log:    log.With().Str("component", "health").Logger(),
	}
}

// Check probes the backend and records the outcome. The most recent probe
// always wins.
func (g *Gate) Check(ctx context.Context) bool {
	err := g.prober.Health(ctx)

	g.mu.Lock()
	was := g.reachable
	g.reachable = err == nil
	now := g.reachable
	g.mu.Unlock()

	if was != now {
		g.log.Info().Bool("reachable", now).Msg("backend availability changed")
	}
	return now
}

// Reachable reports the last probe result.
func (g *Gate) Reachable() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.reachable
}
