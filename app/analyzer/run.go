package analyzer

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/canopy-network/nodedist/pkg/analysis"
	"github.com/canopy-network/nodedist/pkg/inventory"
	"github.com/canopy-network/nodedist/pkg/lookup"
	"github.com/canopy-network/nodedist/pkg/redis"
	"github.com/canopy-network/nodedist/pkg/report"
	"github.com/canopy-network/nodedist/pkg/state"
	"github.com/canopy-network/nodedist/pkg/tracking"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrUnknownChain is returned when no inventory document exists for the chain.
var ErrUnknownChain = errors.New("unknown blockchain")

// RunRequest selects a chain and the providers and countries tracked in detail.
type RunRequest struct {
	Chain string
	// Providers are registry short codes, Countries ISO alpha-2 codes. Both are
	// case-insensitive.
	Providers []string
	Countries []string
	// Output prints the completion summaries to App.Out.
	Output bool
}

// RunResult is what one run produced.
type RunResult struct {
	ID       string
	Report   *analysis.ChainReport
	Tracked  *tracking.Set
	Files    []string
	Duration time.Duration
}

// Run analyses one chain: every argument is validated before anything is read or
// written, then the document is scanned, the reports and state are saved and the run is
// announced.
func (a *App) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	start := a.clock()
	res, err := a.run(ctx, req, start)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	runsTotal.WithLabelValues(req.Chain, outcome).Inc()
	if err != nil {
		return nil, err
	}
	res.Duration = a.clock().Sub(start)
	runDuration.WithLabelValues(req.Chain).Observe(res.Duration.Seconds())
	lastRunNodes.WithLabelValues(req.Chain).Set(float64(res.Report.TotalNodes))
	return res, nil
}

func (a *App) run(ctx context.Context, req RunRequest, start time.Time) (*RunResult, error) {
	chain := strings.TrimSpace(req.Chain)
	logger := a.Logger.With(zap.String("chain", chain))

	chains, err := inventory.ListChains(a.Config.JSONDir)
	if err != nil {
		return nil, fmt.Errorf("list chains: %w", err)
	}
	if !slices.Contains(chains, chain) {
		return nil, fmt.Errorf("%w %q, valid blockchains: %s", ErrUnknownChain, req.Chain, strings.Join(chains, ", "))
	}

	kind, err := a.Config.Kind(chain)
	if err != nil {
		return nil, err
	}
	providers, err := a.Providers.ResolveShorts(req.Providers)
	if err != nil {
		return nil, err
	}
	countries, err := a.Countries.ResolveCodes(req.Countries)
	if err != nil {
		return nil, err
	}

	doc, err := inventory.Load(a.Config.JSONDir, chain)
	if err != nil {
		return nil, err
	}

	tracked, err := a.loadTracked(ctx, chain, providers, countries, start)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	logger = logger.With(zap.String("runID", id))
	logger.Info("Analysis started",
		zap.String("kind", kind.Name()),
		zap.Int("nodes", doc.Nodes.Len()),
		zap.Int("trackedProviders", len(tracked.Providers)),
		zap.Int("trackedCountries", len(tracked.Countries)))

	snapshot, err := lookup.Warm(ctx, logger, a.ASN, a.Geo, doc.Nodes.IPs(), a.Config.Lookup.Workers)
	if err != nil {
		return nil, fmt.Errorf("warm lookups: %w", err)
	}

	engine := analysis.NewEngine(kind, analysis.Deps{
		Providers: a.Providers,
		Countries: a.Countries,
		ASN:       snapshot,
		Geo:       snapshot,
		Tracked:   tracked,
		Logger:    logger,
	})
	chainReport := analysis.NewChainReport(chain, kind, doc, start)
	if err := engine.Aggregate(ctx, chainReport, doc.Nodes); err != nil {
		return nil, err
	}
	engine.CalculatePercentages(chainReport)
	tracked.Stamp(start)

	files, err := a.Writer.WriteAll(ctx, chainReport, tracked)
	if err != nil {
		return nil, fmt.Errorf("write reports: %w", err)
	}
	if err := state.SaveRun(ctx, a.State, chainReport, tracked); err != nil {
		return nil, fmt.Errorf("save state: %w", err)
	}

	if a.Snapshots != nil {
		if err := a.Snapshots.InsertSnapshot(ctx, chainReport, id); err != nil {
			logger.Error("Unable to store snapshot", zap.Error(err))
		}
	}
	a.announce(ctx, logger, id, chainReport, files)

	if req.Output {
		report.PrintSummaries(a.Out, chainReport, tracked)
	}

	logger.Info("Analysis finished",
		zap.Int64("nodes", chainReport.TotalNodes),
		zap.Int("providers", len(chainReport.Providers)),
		zap.Int("unidentifiedASNs", len(chainReport.UnidentifiedASNs)),
		zap.Int("unidentifiedLocations", len(chainReport.UnidentifiedLocations)),
		zap.Int("invalidIPs", len(chainReport.InvalidIPs)),
		zap.Int("files", len(files)))

	return &RunResult{ID: id, Report: chainReport, Tracked: tracked, Files: files}, nil
}

// loadTracked resumes the tracked entities of earlier runs so cumulative counters and the
// monitoring start date carry over. Unknown entities start fresh at now.
func (a *App) loadTracked(ctx context.Context, chain string, providers, countries map[string]string, now time.Time) (*tracking.Set, error) {
	set := tracking.NewSet()
	for short, name := range providers {
		p, err := state.LoadProvider(ctx, a.State, chain, short)
		switch {
		case errors.Is(err, state.ErrNotFound):
			p = tracking.NewProvider(short, name, chain, now)
		case err != nil:
			return nil, fmt.Errorf("load provider %s: %w", short, err)
		}
		set.AddProvider(p)
	}
	for code, name := range countries {
		c, err := state.LoadCountry(ctx, a.State, chain, code)
		switch {
		case errors.Is(err, state.ErrNotFound):
			c = tracking.NewCountry(code, name, chain, now)
		case err != nil:
			return nil, fmt.Errorf("load country %s: %w", code, err)
		}
		set.AddCountry(c)
	}
	return set, nil
}

// announce publishes the run on Redis. Notifications are best effort.
func (a *App) announce(ctx context.Context, logger *zap.Logger, id string, r *analysis.ChainReport, files []string) {
	if a.Redis == nil {
		return
	}
	event := redis.RunEvent{
		ID:                    id,
		Chain:                 r.Chain,
		Kind:                  r.Kind,
		Nodes:                 r.TotalNodes,
		Providers:             len(r.Providers),
		UnidentifiedASNs:      len(r.UnidentifiedASNs),
		UnidentifiedLocations: len(r.UnidentifiedLocations),
		InvalidIPs:            len(r.InvalidIPs),
		Files:                 files,
		FinishedAt:            a.clock().UTC(),
	}
	if streamID := a.Redis.Announce(ctx, event); streamID != "" {
		logger.Debug("Run announced", zap.String("streamID", streamID))
	}
}

// RunScheduled analyses every scheduled chain in turn, each bounded by the run timeout.
// A failing chain is logged and does not stop the others.
func (a *App) RunScheduled(ctx context.Context) {
	chains, err := a.scheduledChains()
	if err != nil {
		a.Logger.Error("Unable to list scheduled chains", zap.Error(err))
		return
	}
	timeout, err := a.Config.RunTimeout()
	if err != nil {
		a.Logger.Error("Invalid run timeout", zap.Error(err))
		return
	}

	for _, chain := range chains {
		if ctx.Err() != nil {
			return
		}
		cc := a.Config.Chain(chain)
		rctx, cancel := context.WithTimeout(ctx, timeout)
		_, err := a.Run(rctx, RunRequest{Chain: chain, Providers: cc.Providers, Countries: cc.Countries})
		cancel()
		if err != nil {
			a.Logger.Error("Scheduled run failed", zap.String("chain", chain), zap.Error(err))
		}
	}
}

func (a *App) scheduledChains() ([]string, error) {
	if len(a.Config.Schedule.Chains) > 0 {
		return a.Config.Schedule.Chains, nil
	}
	return inventory.ListChains(a.Config.JSONDir)
}
