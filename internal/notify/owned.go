package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/nhle/airbrb-notify/internal/source"
)

// ResolveOwned computes the set of listings whose owner is identity. The
// catalog only carries ids, so every listing's detail is fetched, at most
// concurrency at a time. A listing whose detail cannot be fetched is left
// out of the set; a failed catalog fetch is returned as an error.
func ResolveOwned(
	ctx context.Context,
	src source.Source,
	identity string,
	concurrency int,
) (OwnedListingSet, error) {
	ids, err := src.ListListings(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving owned listings: %w", err)
	}

	if concurrency < 1 {
		concurrency = 1
	}

	var (
		mu    sync.Mutex
		owned = make(OwnedListingSet)
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, id := range ids {
		g.Go(func() error {
			listing, err := src.GetListing(gctx, id)
			if err != nil {
				if source.IsAuthError(err) {
					return err
				}
				slog.Warn("skipping listing detail", "listing_id", id, "error", err)
				return nil
			}
			if listing.Owner != identity {
				return nil
			}
			mu.Lock()
			owned[id] = struct{}{}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("resolving owned listings: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("resolving owned listings: %w", err)
	}

	return owned, nil
}
