package lookup

import (
	"context"
	"errors"
	"runtime"

	"github.com/alitto/pond/v2"
	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"
)

// MaxWorkers caps the warmup pool regardless of CPU count.
const MaxWorkers = 64

// DefaultWorkers is 4x the CPU count, capped at MaxWorkers.
func DefaultWorkers() int {
	n := runtime.NumCPU() * 4
	if n > MaxWorkers {
		n = MaxWorkers
	}
	return n
}

type asnAnswer struct {
	res ASNResult
	err error
}

type geoAnswer struct {
	loc Location
	err error
}

// Snapshot holds pre-resolved answers for a fixed ip set. It implements ASNLookup and
// GeoLookup, falling back to the live lookups for ips it has not seen.
type Snapshot struct {
	asn     ASNLookup
	geo     GeoLookup
	asnSeen *xsync.Map[string, asnAnswer]
	geoSeen *xsync.Map[string, geoAnswer]
}

// Warm resolves every distinct valid ip on a bounded pool and returns the snapshot. Lookup
// errors are stored, not returned; the only error is cancellation of ctx.
func Warm(ctx context.Context, logger *zap.Logger, asn ASNLookup, geo GeoLookup, ips []string, workers int) (*Snapshot, error) {
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	s := &Snapshot{
		asn:     asn,
		geo:     geo,
		asnSeen: xsync.NewMap[string, asnAnswer](),
		geoSeen: xsync.NewMap[string, geoAnswer](),
	}

	queueSize := len(ips) * 2
	if queueSize < 16 {
		queueSize = 16
	}
	pool := pond.NewPool(workers, pond.WithQueueSize(queueSize))
	defer pool.StopAndWait()
	group := pool.NewGroupContext(ctx)
	groupCtx := group.Context()

	seen := make(map[string]struct{}, len(ips))
	for _, ip := range ips {
		if _, dup := seen[ip]; dup || IsInvalid(ip) {
			continue
		}
		seen[ip] = struct{}{}

		group.Submit(func() {
			if groupCtx.Err() != nil {
				return
			}
			res, err := asn.LookupASN(groupCtx, ip)
			if groupCtx.Err() != nil {
				return
			}
			s.asnSeen.Store(ip, asnAnswer{res: res, err: err})
		})
		group.Submit(func() {
			if groupCtx.Err() != nil {
				return
			}
			loc, err := geo.LookupGeo(groupCtx, ip)
			if groupCtx.Err() != nil {
				return
			}
			s.geoSeen.Store(ip, geoAnswer{loc: loc, err: err})
		})
	}

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
		logger.Warn("lookup warmup tasks failed", zap.Error(err))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger.Debug("lookup warmup complete",
		zap.Int("ips", len(seen)),
		zap.Int("workers", workers))
	return s, nil
}

func (s *Snapshot) LookupASN(ctx context.Context, ip string) (ASNResult, error) {
	if a, ok := s.asnSeen.Load(ip); ok {
		return a.res, a.err
	}
	return s.asn.LookupASN(ctx, ip)
}

func (s *Snapshot) LookupGeo(ctx context.Context, ip string) (Location, error) {
	if g, ok := s.geoSeen.Load(ip); ok {
		return g.loc, g.err
	}
	return s.geo.LookupGeo(ctx, ip)
}
