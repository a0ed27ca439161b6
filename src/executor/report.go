package executor

import (
	"time"

	"autotrader/src/model"
)

// SymbolState is the per-symbol execution state within one cycle.
type SymbolState string

const (
	StateIdle         SymbolState = "idle"
	StateSignaled     SymbolState = "signaled"
	StateSized        SymbolState = "sized"
	StateQuoteFetched SymbolState = "quote_fetched"
	StateSubmitted    SymbolState = "submitted"
	StateConfirmed    SymbolState = "confirmed"
	StateRejected     SymbolState = "rejected"
	StateFailed       SymbolState = "failed"
)

// FailureKind is the typed per-operation outcome replacing blanket
// catch-and-continue: each failed symbol carries exactly one kind.
type FailureKind string

const (
	FailureNone            FailureKind = ""
	FailureDataUnavailable FailureKind = "data_unavailable"
	FailureTransport       FailureKind = "transport_failure"
	FailureOrderRejected   FailureKind = "order_rejected"
)

// SkipReason explains a cycle that submitted zero orders without touching
// any symbol.
type SkipReason string

const (
	SkipNone              SkipReason = ""
	SkipCycleRunning      SkipReason = "cycle_already_running"
	SkipRiskLimitBreached SkipReason = "risk_limit_breached"
	SkipAccountFetch      SkipReason = "account_fetch_failed"
)

// SymbolOutcome is the terminal record of one symbol's path through the
// cycle state machine.
type SymbolOutcome struct {
	Symbol    string          `json:"symbol"`
	Direction model.Direction `json:"direction"`
	Momentum  float64         `json:"momentum"`
	State     SymbolState     `json:"state"`
	Failure   FailureKind     `json:"failure,omitempty"`
	Quantity  int64           `json:"quantity,omitempty"`
	Detail    string          `json:"detail,omitempty"`
}

// CycleReport aggregates one cycle's outcomes for observability. It is the
// single artifact a cycle surfaces; per-symbol failures are collected here
// instead of silently discarded at the call site.
type CycleReport struct {
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Skipped    bool            `json:"skipped"`
	SkipReason SkipReason      `json:"skip_reason,omitempty"`
	Outcomes   []SymbolOutcome `json:"outcomes,omitempty"`

	errs []error
}

func newCycleReport(now time.Time) *CycleReport {
	return &CycleReport{StartedAt: now}
}

func (r *CycleReport) add(outcome SymbolOutcome, err error) {
	r.Outcomes = append(r.Outcomes, outcome)
	if err != nil {
		r.errs = append(r.errs, err)
	}
}

// Errors returns the per-symbol errors collected during the cycle.
func (r *CycleReport) Errors() []error {
	return r.errs
}

// OrdersSubmitted counts the symbols whose path reached submission.
func (r *CycleReport) OrdersSubmitted() int {
	n := 0
	for _, o := range r.Outcomes {
		switch o.State {
		case StateSubmitted, StateConfirmed:
			n++
		}
	}
	return n
}
