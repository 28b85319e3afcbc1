package transport

import (
	"context"
	"fmt"
	"sync"
)

// Router dispatches to the Publisher registered for a target's kind.
type Router struct {
	mu   sync.RWMutex
	pubs map[Kind]Publisher
}

func NewRouter() *Router {
	return &Router{pubs: map[Kind]Publisher{}}
}

// Register installs (or replaces) the publisher for kind. A nil publisher removes it.
func (r *Router) Register(kind Kind, p Publisher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p == nil {
		delete(r.pubs, kind)
		return
	}
	r.pubs[kind] = p
}

func (r *Router) publisher(kind Kind) (Publisher, error) {
	r.mu.RLock()
	p, ok := r.pubs[kind]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoPublisher, kind)
	}
	return p, nil
}

func (r *Router) Post(ctx context.Context, to Target, n Notification) (string, error) {
	p, err := r.publisher(to.Kind)
	if err != nil {
		return "", err
	}
	return p.Post(ctx, to, n)
}

func (r *Router) Delete(ctx context.Context, to Target, messageID string) error {
	p, err := r.publisher(to.Kind)
	if err != nil {
		return err
	}
	return p.Delete(ctx, to, messageID)
}
