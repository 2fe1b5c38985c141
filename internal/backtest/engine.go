package backtest

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"portfolio-backtest/internal/data"
	"portfolio-backtest/internal/model"
	"portfolio-backtest/internal/optimize"
	"portfolio-backtest/internal/strategy"
	"portfolio-backtest/internal/universe"
)

const DefaultStartingCapital = 10000.0

// Engine runs one strategy over one dataset, month by month.
// It is not safe for concurrent use; build one engine per run.
type Engine struct {
	ds       *data.Dataset
	strat    strategy.Strategy
	params   strategy.Params
	capital  float64
	missing  MissingPricePolicy
	logger   *zap.Logger
	override strategy.Strategy
}

type Option func(*Engine)

func WithStartingCapital(v float64) Option { return func(e *Engine) { e.capital = v } }
func WithPortfolioSize(n int) Option      { return func(e *Engine) { e.params.PortfolioSize = n } }
func WithUniverseSize(n int) Option       { return func(e *Engine) { e.params.UniverseSize = n } }
func WithLookbackDays(n int) Option       { return func(e *Engine) { e.params.LookbackDays = n } }
func WithMinHistory(n int) Option         { return func(e *Engine) { e.params.MinHistory = n } }

func WithOptimizer(o optimize.Options) Option {
	return func(e *Engine) { e.params.Optimizer = o }
}

func WithMissingPricePolicy(p MissingPricePolicy) Option {
	return func(e *Engine) { e.missing = p }
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithStrategy replaces the named built-in strategy with s.
func WithStrategy(s strategy.Strategy) Option { return func(e *Engine) { e.override = s } }

// New builds an engine for the named built-in strategy.
func New(ds *data.Dataset, strategyName string, opts ...Option) (*Engine, error) {
	if ds == nil || ds.Len() == 0 {
		return nil, fmt.Errorf("engine: %w", model.ErrData)
	}
	e := &Engine{
		ds:      ds,
		params:  strategy.DefaultParams(),
		capital: DefaultStartingCapital,
		missing: PolicyDrop,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if !(e.capital > 0) {
		return nil, fmt.Errorf("starting capital must be > 0, got %v", e.capital)
	}
	policy, err := ParseMissingPricePolicy(string(e.missing))
	if err != nil {
		return nil, err
	}
	e.missing = policy
	if e.override != nil {
		e.strat = e.override
		return e, nil
	}
	s, err := strategy.New(strategyName, e.params)
	if err != nil {
		return nil, err
	}
	e.strat = s
	return e, nil
}

func (e *Engine) Strategy() strategy.Strategy { return e.strat }

// Periods enumerates the calendar months from the first month start on or
// after the dataset's first day through the month of its last observation.
func (e *Engine) Periods() []model.Period { return e.ds.Months() }

// Run folds Step over every period in chronological order. Skippable errors
// drop the month and keep the value; any other error aborts the run.
// Cancellation is honoured between periods: the partial result is returned
// together with ctx.Err().
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	res := &Result{
		Strategy:        e.strat.Name(),
		StartingCapital: e.capital,
		FinalValue:      e.capital,
	}
	state := model.PortfolioState{Value: e.capital}

	for _, p := range e.Periods() {
		if err := ctx.Err(); err != nil {
			res.FinalValue = state.Value
			return res, err
		}
		next, rec, err := e.Step(state, p)
		if err != nil {
			if !model.Skippable(err) {
				res.FinalValue = state.Value
				return res, fmt.Errorf("%s %s: %w", e.strat.Name(), p, err)
			}
			res.Skipped = append(res.Skipped, model.SkippedPeriod{Period: p.Start, Reason: err})
			fields := []zap.Field{
				zap.String("strategy", e.strat.Name()),
				zap.String("period", p.String()),
				zap.Error(err),
			}
			if errors.Is(err, model.ErrNonConvergence) {
				e.logger.Warn("period skipped", fields...)
			} else {
				e.logger.Info("period skipped", fields...)
			}
			continue
		}
		state = next
		res.Records = append(res.Records, *rec)
	}
	res.FinalValue = state.Value

	e.logger.Info("backtest complete",
		zap.String("strategy", res.Strategy),
		zap.Int("records", len(res.Records)),
		zap.Int("skipped", len(res.Skipped)),
		zap.Float64("final_value", res.FinalValue),
	)
	return res, nil
}

// Step processes one month: select the universe, weight it, buy at the entry
// prices and revalue at the exit prices. On error it returns state unchanged
// and no record.
func (e *Engine) Step(state model.PortfolioState, p model.Period) (model.PortfolioState, *model.PerformanceRecord, error) {
	pol := e.strat.Policy()

	candidates := pol.Universe.Select(e.ds, p)
	if len(candidates) == 0 {
		return state, nil, model.ErrNoCandidates
	}

	month := e.ds.Slice(p.Start, p.End)
	window := month
	if pol.Window == strategy.WindowTrailing {
		window = e.ds.Slice(p.Lookback(pol.LookbackDays))
	}
	window = onlyAssets(window, candidates)

	ranked := universe.Observations(e.ds, p, pol.Source)
	snapshot := make(map[model.AssetID]model.Observation, len(candidates))
	for _, id := range candidates {
		if o, ok := ranked[id]; ok {
			snapshot[id] = o
		}
	}

	alloc, err := e.strat.Weights(strategy.Context{
		Period:     p,
		Candidates: candidates,
		Window:     window,
		Snapshot:   snapshot,
	})
	if err != nil {
		return state, nil, err
	}
	if !alloc.Valid() {
		return state, nil, fmt.Errorf("strategy %s returned invalid weights (sum %v)", e.strat.Name(), alloc.Sum())
	}

	entry := e.entryPrices(pol, p, month, window)
	holding, err := e.buy(state.Value, alloc, entry)
	if err != nil {
		return state, nil, err
	}

	value, err := e.revalue(holding, e.exitPrices(pol, p, month))
	if err != nil {
		return state, nil, err
	}

	rec := &model.PerformanceRecord{Period: p.Start, Value: value, Assets: len(holding)}
	return model.PortfolioState{Value: value}, rec, nil
}

func (e *Engine) entryPrices(pol strategy.Policy, p model.Period, month, window []model.Observation) map[model.AssetID]model.Observation {
	switch pol.Entry {
	case strategy.EntryStartDay:
		return e.ds.Snapshot(p.Start)
	case strategy.EntryWindowLast:
		return data.LastByAsset(window)
	default:
		return data.FirstByAsset(month)
	}
}

func (e *Engine) exitPrices(pol strategy.Policy, p model.Period, month []model.Observation) map[model.AssetID]model.Observation {
	if pol.Exit == strategy.ExitMonthEndDay {
		return e.ds.Snapshot(p.LastDay())
	}
	return data.LastByAsset(month)
}

// buy converts weights into units at the entry prices.
func (e *Engine) buy(value float64, alloc model.Allocation, entry map[model.AssetID]model.Observation) (model.Holding, error) {
	priced := make(model.Allocation, len(alloc))
	for _, id := range alloc.Assets() {
		if o, ok := entry[id]; ok && o.Price > 0 && alloc[id] > 0 {
			priced[id] = alloc[id]
		}
	}
	if len(priced) == 0 {
		return nil, fmt.Errorf("%w: none of %d allocated assets has an entry price", model.ErrMissingPrice, len(alloc))
	}
	if e.missing == PolicyRedistribute {
		priced = priced.Normalized()
	}

	h := make(model.Holding, len(priced))
	for id, w := range priced {
		price := entry[id].Price
		h[id] = model.Position{Units: w * value / price, EntryPrice: price}
	}
	return h, nil
}

// revalue prices a holding at the exit prices. Summation runs in asset order
// so repeated runs are bit-identical.
func (e *Engine) revalue(h model.Holding, exit map[model.AssetID]model.Observation) (float64, error) {
	total, priced := 0.0, 0
	for _, id := range h.Assets() {
		pos := h[id]
		o, ok := exit[id]
		switch {
		case ok && o.Price > 0:
			total += pos.Units * o.Price
			priced++
		case e.missing == PolicyRedistribute:
			total += pos.EntryValue()
		}
	}
	if priced == 0 && e.missing == PolicyDrop {
		return 0, fmt.Errorf("%w: none of %d held assets has an exit price", model.ErrMissingPrice, len(h))
	}
	return total, nil
}

func onlyAssets(obs []model.Observation, ids []model.AssetID) []model.Observation {
	keep := make(map[model.AssetID]bool, len(ids))
	for _, id := range ids {
		keep[id] = true
	}
	out := make([]model.Observation, 0, len(obs))
	for _, o := range obs {
		if keep[o.Asset] {
			out = append(out, o)
		}
	}
	return out
}
