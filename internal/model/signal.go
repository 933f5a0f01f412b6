package model

import "time"

// Strategy selects the indicator set and the planner rules.
type Strategy string

const (
	TrendFollowing Strategy = "trend_following"
	MeanReversion  Strategy = "mean_reversion"
)

// Strategies lists every supported strategy in a stable order.
var Strategies = []Strategy{TrendFollowing, MeanReversion}

// Valid reports whether s is a known strategy.
func (s Strategy) Valid() bool {
	return s == TrendFollowing || s == MeanReversion
}

// SignalTier classifies a composite score.
type SignalTier string

const (
	TierExtreme SignalTier = "EXTREME"
	TierHigh    SignalTier = "HIGH"
	TierMedium  SignalTier = "MEDIUM"
	TierLow     SignalTier = "LOW"
	TierWeak    SignalTier = "WEAK"
)

// Contribution is one indicator's share of a composite score.
type Contribution struct {
	Indicator  string  `json:"indicator"`
	Category   string  `json:"category"`
	Raw        float64 `json:"raw"`
	Multiplier float64 `json:"multiplier"`
	Points     float64 `json:"points"`
}

// ScoreBreakdown is the scored result for one instrument on one date under one strategy.
type ScoreBreakdown struct {
	Instrument    string             `json:"instrument"`
	AsOf          time.Time          `json:"as_of"`
	Strategy      Strategy           `json:"strategy"`
	Contributions map[string]float64 `json:"contributions"`
	Adjustments   map[string]float64 `json:"adjustments"`
	Details       []Contribution     `json:"details"`
	Abstained     []string           `json:"abstained,omitempty"`
	Total         float64            `json:"total"`
	Tier          SignalTier         `json:"tier"`
}
