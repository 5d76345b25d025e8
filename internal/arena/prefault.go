package arena

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/blockalloc/internal/mmap"
)

// defaultSpan is the unit of work handed to one warm-up goroutine.
const defaultSpan = 64 << 20

// prefault writes one byte into every page of the arena. A fresh commit may
// be satisfied lazily by the OS; touching each page forces real physical
// backing before the first allocation is served. It runs exactly once, from
// New.
func (a *Arena) prefault(ctx context.Context) error {
	data := a.mapping.Bytes()
	page := a.cfg.PageSize

	// The hint is advisory; the touch loop below does the real work.
	_ = a.mapping.Advise(mmap.AccessWillNeed)

	span := defaultSpan
	if b := a.rc.PrefaultBurst(); b > 0 && b < span {
		span = b
	}
	span -= span % page
	if span < page {
		span = page
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.PrefaultWorkers)

	for off := 0; off < len(data); off += span {
		if err := gctx.Err(); err != nil {
			break
		}
		end := min(off+span, len(data))
		chunk := data[off:end]
		g.Go(func() error {
			if err := a.rc.WaitPrefault(gctx, len(chunk)); err != nil {
				return err
			}
			var touched uint64
			for i := 0; i < len(chunk); i += page {
				chunk[i] = 1
				touched++
			}
			a.pagesTouched.Add(touched)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
