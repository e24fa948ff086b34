package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Domenick1991/airdash/internal/domain"
)

type BucketLister interface {
	ListFlights(ctx context.Context, bucket domain.Bucket) ([]domain.Flight, error)
}

// FetchBuckets lists every bucket in parallel. Buckets that failed are
// absent from the result and their errors are joined; the caller replaces
// only what came back.
func FetchBuckets(ctx context.Context, lister BucketLister, buckets ...domain.Bucket) (map[domain.Bucket][]domain.Flight, error) {
	var (
		mu   sync.Mutex
		out  = make(map[domain.Bucket][]domain.Flight, len(buckets))
		errs []error
	)

	// A failed bucket must not cancel its siblings.
	var g errgroup.Group
	for _, bk := range buckets {
		g.Go(func() error {
			flights, err := lister.ListFlights(ctx, bk)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", bk, err))
				return nil
			}
			if flights == nil {
				flights = []domain.Flight{}
			}
			out[bk] = flights
			return nil
		})
	}
	g.Wait()
	return out, errors.Join(errs...)
}
