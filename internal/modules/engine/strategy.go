package engine

import "github.com/lottokit/drawgen/internal/domain"

// Strategy weight presets layered on top of the structural defaults.
// Hot chases frequently drawn numbers, cold avoids them, mixed blends
// frequency with pair affinity and correlated leans entirely on pair
// affinity. Structural applies no statistics terms at all.
const (
	hotFrequencyWeight     = 2.0
	coldFrequencyWeight    = -2.0
	mixedFrequencyWeight   = 1.0
	mixedCorrelationWeight = 1.5
	correlatedPairWeight   = 3.0
)

// StrategyWeights returns base with the statistics terms switched on
// for the given strategy variant. Unknown strategies fall through to
// the structural preset.
func StrategyWeights(s domain.Strategy, base Weights) Weights {
	w := base
	w.Correlation = 0
	w.Frequency = 0
	switch s {
	case domain.StrategyHot:
		w.Frequency = hotFrequencyWeight
	case domain.StrategyCold:
		w.Frequency = coldFrequencyWeight
	case domain.StrategyMixed:
		w.Frequency = mixedFrequencyWeight
		w.Correlation = mixedCorrelationWeight
	case domain.StrategyCorrelated:
		w.Correlation = correlatedPairWeight
	}
	return w
}

// StrategyInfo describes one selectable strategy for API consumers.
type StrategyInfo struct {
	Name        domain.Strategy `json:"name"`
	Description string          `json:"description"`
	Weights     Weights         `json:"weights"`
	NeedsStats  bool            `json:"needs_stats"`
}

// DescribeStrategies lists every strategy with its effective weight
// configuration relative to base.
func DescribeStrategies(base Weights) []StrategyInfo {
	descriptions := map[domain.Strategy]string{
		domain.StrategyStructural: "structural heuristics only, no draw history required",
		domain.StrategyHot:        "favor numbers drawn frequently in recent history",
		domain.StrategyCold:       "favor numbers drawn rarely or long ago",
		domain.StrategyMixed:      "blend recent frequency with pair affinity",
		domain.StrategyCorrelated: "favor number pairs that co-occur more than chance predicts",
	}
	infos := make([]StrategyInfo, 0, len(domain.Strategies()))
	for _, s := range domain.Strategies() {
		w := StrategyWeights(s, base)
		infos = append(infos, StrategyInfo{
			Name:        s,
			Description: descriptions[s],
			Weights:     w,
			NeedsStats:  w.Frequency != 0 || w.Correlation != 0,
		})
	}
	return infos
}
