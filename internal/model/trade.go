package model

import "time"

// ExitReason says why a trade closed.
type ExitReason string

const (
	ExitTarget   ExitReason = "TARGET"
	ExitStop     ExitReason = "STOP"
	ExitTimeExit ExitReason = "TIME_EXIT"
)

// TradeState is the lifecycle position of a simulated trade.
type TradeState string

const (
	StatePending      TradeState = "PENDING"
	StateOpen         TradeState = "OPEN"
	StateClosedTarget TradeState = "CLOSED_TARGET"
	StateClosedStop   TradeState = "CLOSED_STOP"
	StateClosedTime   TradeState = "CLOSED_TIME"
)

// TradePlan holds the synthetic entry, stop and target levels for a candidate.
type TradePlan struct {
	Instrument     string     `json:"instrument"`
	AsOf           time.Time  `json:"as_of"`
	Strategy       Strategy   `json:"strategy"`
	EntryPrice     float64    `json:"entry_price"`
	StopPrice      float64    `json:"stop_price"`
	TargetPrice    float64    `json:"target_price"`
	Tier           SignalTier `json:"tier"`
	DiscountUsed   float64    `json:"discount_used"`
	ATR            float64    `json:"atr"`
	Score          float64    `json:"score"`
	WinProbability *float64   `json:"win_probability,omitempty"`
}

// Trade is a closed simulated trade. It is never mutated after closing.
type Trade struct {
	Plan       TradePlan  `json:"plan"`
	Run        int        `json:"run"`
	EntryDate  time.Time  `json:"entry_date"`
	ExitDate   time.Time  `json:"exit_date"`
	ExitReason ExitReason `json:"exit_reason"`
	ExitPrice  float64    `json:"exit_price"`
	PnLPct     float64    `json:"pnl_pct"`
	BarsHeld   int        `json:"bars_held"`
}

// State maps the exit reason to the terminal lifecycle state.
func (t Trade) State() TradeState {
	switch t.ExitReason {
	case ExitTarget:
		return StateClosedTarget
	case ExitStop:
		return StateClosedStop
	default:
		return StateClosedTime
	}
}

// Win reports whether the trade made money.
func (t Trade) Win() bool { return t.PnLPct > 0 }

// Exclusion records why an instrument produced no trade on a date.
type Exclusion struct {
	Instrument string    `json:"instrument"`
	Date       time.Time `json:"date"`
	Reason     string    `json:"reason"`
	Detail     string    `json:"detail,omitempty"`
}

// Exclusion reasons.
const (
	ReasonDataIntegrity       = "data_integrity"
	ReasonNoBar               = "no_bar_on_date"
	ReasonInsufficientHistory = "insufficient_history"
	ReasonDeadOrFlat          = "dead_or_flat"
	ReasonIlliquid            = "illiquid"
	ReasonDegeneratePlan      = "degenerate_plan"
	ReasonNotFilled           = "entry_not_filled"
	ReasonNoForwardBars       = "no_forward_bars"
	ReasonNotFound            = "not_found"
)
