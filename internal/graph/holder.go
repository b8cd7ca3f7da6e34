package graph

import "sync/atomic"

// Holder publishes the current graph to concurrent readers. Reload swaps the
// pointer atomically; requests that already captured a graph keep using it,
// so an in-flight route never observes a torn graph.
type Holder struct {
	cur atomic.Pointer[Graph]
}

// NewHolder returns a holder publishing g.
func NewHolder(g *Graph) *Holder {
	h := &Holder{}
	h.cur.Store(g)
	return h
}

// Current returns the published graph.
func (h *Holder) Current() *Graph { return h.cur.Load() }

// Replace publishes g, leaving previously captured references valid.
func (h *Holder) Replace(g *Graph) { h.cur.Store(g) }

// ReloadFile loads path and, only on success, publishes the new graph.
// A load failure leaves the current graph in place.
func (h *Holder) ReloadFile(path string) error {
	g, err := LoadFile(path)
	if err != nil {
		return err
	}
	h.cur.Store(g)
	return nil
}
