// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/pdiddy/mdconvert/pkg/types"
)

// Priority orders converter attempts. Lower values run first.
type Priority float64

const (
	// PrioritySpecific is for converters bound to a narrow format signature.
	PrioritySpecific Priority = 0
	// PriorityGeneric is for catch-all converters (html, text) tried last.
	PriorityGeneric Priority = 10
)

// Converter transforms one family of input formats into Markdown.
//
// Accepts must be cheap: it inspects only the hints, never the content.
// Convert returns (nil, nil) when, after a closer look, the input is not its
// format; dispatch then moves on. A non-nil error means the format was
// recognised but could not be converted and ends dispatch.
type Converter interface {
	Name() string
	Accepts(info types.StreamInfo) bool
	Convert(ctx context.Context, src *Source, info types.StreamInfo) (*types.Result, error)
}

type registration struct {
	conv     Converter
	priority Priority
}

// Registry is an append-only list of converters. It is sealed by the first
// call to Candidates; after that it is read-only.
type Registry struct {
	mu     sync.Mutex
	regs   []registration
	sorted []registration
	sealed bool
}

// Register adds c at priority p.
func (r *Registry) Register(c Converter, p Priority) error {
	if c == nil {
		return fmt.Errorf("registering converter: nil converter")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return fmt.Errorf("registering %s: %w", c.Name(), ErrRegistrySealed)
	}
	r.regs = append(r.regs, registration{conv: c, priority: p})
	return nil
}

// Candidates seals the registry and returns converters in attempt order:
// ascending priority, ties in registration order.
func (r *Registry) Candidates() []Converter {
	r.mu.Lock()
	if !r.sealed {
		r.sorted = append([]registration(nil), r.regs...)
		sort.SliceStable(r.sorted, func(i, j int) bool {
			return r.sorted[i].priority < r.sorted[j].priority
		})
		r.sealed = true
	}
	sorted := r.sorted
	r.mu.Unlock()

	out := make([]Converter, len(sorted))
	for i, reg := range sorted {
		out[i] = reg.conv
	}
	return out
}

// Sealed reports whether dispatch has started.
func (r *Registry) Sealed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sealed
}

// Names returns converter names in attempt order without sealing.
func (r *Registry) Names() []string {
	r.mu.Lock()
	regs := append([]registration(nil), r.regs...)
	r.mu.Unlock()

	sort.SliceStable(regs, func(i, j int) bool { return regs[i].priority < regs[j].priority })
	names := make([]string, len(regs))
	for i, reg := range regs {
		names[i] = reg.conv.Name()
	}
	return names
}
