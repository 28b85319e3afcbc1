package app

import (
	"context"
	"net/http"
	"sync/atomic"

	"memberwatch/internal/counter"
)

// swapFetcher lets a config reload replace the counter source between sweeps.
type swapFetcher struct {
	cur atomic.Pointer[counter.Fetcher]
}

func (s *swapFetcher) set(f *counter.Fetcher) { s.cur.Store(f) }

func (s *swapFetcher) client() *http.Client {
	if f := s.cur.Load(); f != nil {
		return f.Client()
	}
	return nil
}

func (s *swapFetcher) Fetch(ctx context.Context, entityID string) (int64, error) {
	return s.cur.Load().Fetch(ctx, entityID)
}
