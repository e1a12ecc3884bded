package domain

import "time"

type ModelTier string

const (
	TierFlagship ModelTier = "flagship"
	TierMid      ModelTier = "mid"
	TierEconomy  ModelTier = "economy"
)

// ModelDescriptor is one catalog entry, rebuilt on every resolution pass and
// never persisted.
type ModelDescriptor struct {
	ID           string    `json:"id"`
	Version      float64   `json:"version"`
	Tier         ModelTier `json:"tier"`
	Experimental bool      `json:"experimental"`
}

type ScoredCandidate struct {
	Descriptor ModelDescriptor `json:"descriptor"`
	Score      float64         `json:"score"`
}

// ModelPair holds the two resolved generation handles: a low-latency reflex
// model for classification/scoring calls and a thinking model for synthesis.
type ModelPair struct {
	Reflex   string `json:"reflex"`
	Thinking string `json:"thinking"`
}

type TierWeights struct {
	Flagship float64
	Mid      float64
	Economy  float64
}

func (w TierWeights) For(tier ModelTier) float64 {
	switch tier {
	case TierFlagship:
		return w.Flagship
	case TierMid:
		return w.Mid
	case TierEconomy:
		return w.Economy
	default:
		return 0
	}
}

// ModelScoring holds the capability-scoring weights. VersionWeight must
// dominate tier gaps so a newer major version always outranks an older one
// regardless of tier.
type ModelScoring struct {
	VersionWeight     float64
	ExperimentalBonus float64
	ThinkingTiers     TierWeights
	ReflexTiers       TierWeights
}

// DefaultModelScoring weights the reflex ranking so economy-tier models
// outrank everything on latency grounds, while the thinking ranking keeps the
// usual flagship > mid > economy order.
func DefaultModelScoring() ModelScoring {
	return ModelScoring{
		VersionWeight:     1000,
		ExperimentalBonus: 50,
		ThinkingTiers:     TierWeights{Flagship: 300, Mid: 200, Economy: 100},
		ReflexTiers:       TierWeights{Flagship: 300, Mid: 200, Economy: 500},
	}
}

// ResolverLimits bounds the live-probe step so resolution never blocks the
// critical path indefinitely.
type ResolverLimits struct {
	ProbeTimeout time.Duration `json:"probe_timeout"`
	MaxProbes    int           `json:"max_probes"`
}

// FrozenFallback names known-good identifiers used when every probe in a
// ranking fails.
type FrozenFallback struct {
	Reflex   string `json:"reflex"`
	Thinking string `json:"thinking"`
}
