package checkout

import (
	"context"
	"log/slog"

	"phlebcare-backend/internal/coupon"
	"phlebcare-backend/internal/models"
	"phlebcare-backend/internal/payment"
)

// State is the explicit lifecycle of one checkout's payment saga. The
// orchestrator drives transitions; compensation is a state change, not an
// implicit catch block.
type State string

const (
	StateStarted   State = "Started"
	StateHolding   State = "Holding"
	StateCommitted State = "Committed"
	StateReleasing State = "Releasing"
	StateReleased  State = "Released"
	StateFailed    State = "Failed"
)

// saga tracks what a single checkout has consumed so it can be undone in
// reverse order. Compensation runs at most once; a failed release is logged
// and never masks the error that triggered it.
type saga struct {
	orchestrator *Orchestrator
	state        State
	gateway      payment.Gateway
	holdTxID     string
	redemption   *coupon.Redemption
	couponCode   string
	orderID      uint64
	compensated  bool
	log          *slog.Logger
}

func newSaga(o *Orchestrator, couponCode string, log *slog.Logger) *saga {
	return &saga{orchestrator: o, state: StateStarted, couponCode: couponCode, log: log}
}

func (s *saga) couponRedeemed(r *coupon.Redemption) {
	s.redemption = r
}

func (s *saga) held(gw payment.Gateway, transactionID string) {
	s.gateway = gw
	s.holdTxID = transactionID
	s.transition(StateHolding)
}

// charged records an immediate-settlement payment. The funds sit with the
// provider exactly as with a hold; compensation refunds instead of
// releasing, which on those providers is the same Release call.
func (s *saga) charged(gw payment.Gateway, transactionID string) {
	s.held(gw, transactionID)
}

func (s *saga) committed(orderID uint64) {
	s.orderID = orderID
	s.transition(StateCommitted)
}

// compensate undoes the consumed resources in reverse order: release the
// payment hold first, then refund the coupon usage. Idempotent.
func (s *saga) compensate(ctx context.Context) {
	if s.compensated {
		return
	}
	s.compensated = true

	if s.holdTxID != "" && s.gateway != nil {
		s.transition(StateReleasing)
		if err := s.gateway.Release(ctx, s.holdTxID); err != nil {
			// The original failure stays the caller's error; a failed
			// release only leaves a trail for reconciliation.
			s.log.Error("failed to release payment hold",
				slog.String("transaction_id", s.holdTxID),
				slog.String("provider", s.gateway.Name()),
				slog.String("error", err.Error()))
			s.transition(StateFailed)
		} else {
			s.transition(StateReleased)
		}
	} else {
		s.transition(StateFailed)
	}

	if s.redemption != nil {
		if err := s.orchestrator.coupons.Refund(ctx, s.redemption); err != nil {
			s.log.Error("failed to refund coupon usage",
				slog.String("code", s.redemption.Code),
				slog.String("error", err.Error()))
		}
		s.redemption = nil
	}
}

// paymentStatus maps the saga outcome onto the payment_status the caller
// should report when compensation ran.
func (s *saga) paymentStatus(current string) string {
	if s.state == StateReleased {
		return models.PaymentStatusReleased
	}
	return current
}

func (s *saga) finish() {
	if !s.compensated && s.state == StateHolding {
		// Should be unreachable: every exit path commits or compensates.
		s.log.Error("saga finished while still holding funds",
			slog.String("transaction_id", s.holdTxID))
	}
}

func (s *saga) transition(next State) {
	s.log.Info("checkout saga transition",
		slog.String("from", string(s.state)),
		slog.String("to", string(next)),
		slog.Uint64("order_id", s.orderID),
		slog.String("transaction_id", s.holdTxID))
	s.state = next
}
