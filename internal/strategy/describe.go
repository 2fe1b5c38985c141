package strategy

// Param documents one tunable of a built-in strategy.
type Param struct {
	Name        string
	Type        string
	Description string
	Default     any
}

// Info documents a built-in strategy.
type Info struct {
	Name        string
	Description string
	Params      []Param
}

// Describe lists the built-in strategies with their tunables and defaults.
func Describe() []Info {
	d := DefaultParams()
	size := Param{"portfolio_size", "int", "Number of assets held each month", d.PortfolioSize}
	lookback := Param{"lookback_days", "int", "Trailing window before the month start, in days", d.LookbackDays}

	return []Info{
		{
			Name:        NameEqual,
			Description: "Top assets by market cap on their first observation of the month, equal weight, held to the month's last observation.",
			Params:      []Param{size},
		},
		{
			Name:        NameCapWeighted,
			Description: "Top assets by market cap, weighted by market cap.",
			Params:      []Param{size},
		},
		{
			Name:        NameMomentum,
			Description: "Assets with the highest simple return over the lookback window, equal weight.",
			Params: []Param{
				size,
				lookback,
				{"min_history", "int", "Observations an asset needs inside the lookback window", d.MinHistory},
			},
		},
		{
			Name:        NameValue,
			Description: "Among the largest assets on the month's first day, the lowest market cap to 24h volume ratios, equal weight.",
			Params: []Param{
				size,
				{"universe_size", "int", "Largest assets considered before scoring", d.UniverseSize},
			},
		},
		{
			Name:        NameMeanVariance,
			Description: "Long-only weights maximizing mean return over volatility of daily returns in the lookback window.",
			Params: []Param{
				size,
				lookback,
				{"optimizer.max_iter", "int", "Solver iteration limit", 5000},
				{"optimizer.tolerance", "float", "Optimality tolerance", 1e-7},
			},
		},
	}
}
