// Package checkout implements the payment-correlation state machine:
// create a session around a fresh invoice, accept a payment webhook
// exactly once, and drive report generation to a terminal state.
package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/waffleclaw/xray/internal/awsx"
	"github.com/waffleclaw/xray/internal/lightning"
	"github.com/waffleclaw/xray/internal/research"
	"github.com/waffleclaw/xray/internal/session"
)

// eventPaymentReceived is the only webhook event kind that acts on a
// session; everything else is acknowledged and dropped.
const eventPaymentReceived = "payment_received"

// Service wires the session store, invoice issuer, and report generator
// together. When Publisher is set, paid sessions are handed to the SQS
// worker; otherwise the report runs inline before the webhook responds.
// There is no fire-and-forget mode: either the durable hand-off or the
// generation itself completes before the caller is answered.
type Service struct {
	store      session.Store
	issuer     lightning.Issuer
	generator  research.Generator
	publisher  *awsx.Publisher
	metrics    *awsx.Metrics
	amountSats int64

	// fifoFallback allows resolving hash-less events by claiming the
	// oldest pending session. Off by default: two checkouts in flight
	// can be cross-matched, so it is only safe when the deployment
	// guarantees one invoice outstanding at a time.
	fifoFallback bool

	nowFunc func() time.Time
	newID   func() string
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher switches report dispatch to the durable SQS hand-off.
func WithPublisher(p *awsx.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithMetrics enables CloudWatch counters.
func WithMetrics(m *awsx.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithFIFOFallback enables oldest-pending claim for hash-less events.
func WithFIFOFallback() Option {
	return func(s *Service) { s.fifoFallback = true }
}

// NewService returns a Service charging amountSats per report.
func NewService(store session.Store, issuer lightning.Issuer, generator research.Generator, amountSats int64, opts ...Option) *Service {
	s := &Service{
		store:      store,
		issuer:     issuer,
		generator:  generator,
		amountSats: amountSats,
		nowFunc:    time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CheckoutResponse is returned to the client after a session is created.
type CheckoutResponse struct {
	ID         string `json:"id"`
	Bolt11     string `json:"bolt11"`
	AmountSats int64  `json:"amount_sats"`
}

// CreateCheckout issues an invoice, derives its payment hash, and persists
// a pending session. Any failure aborts the whole operation; nothing is
// stored before the invoice exists, and a session is never stored without
// its correlation key. Client retries mint a brand-new session and
// invoice each time; duplicates are an accepted characteristic here.
func (s *Service) CreateCheckout(ctx context.Context, params research.Params) (*CheckoutResponse, error) {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal params: %w", err)
	}

	inv, err := s.issuer.Issue(ctx, s.amountSats)
	if err != nil {
		return nil, fmt.Errorf("issue invoice: %w", err)
	}

	sess := session.Session{
		ID:          s.newID(),
		ParamsJSON:  string(paramsJSON),
		Bolt11:      inv.Bolt11,
		PaymentHash: inv.PaymentHash,
		AmountSats:  s.amountSats,
		Status:      session.StatusPending,
		CreatedAt:   s.nowFunc().UTC(),
	}
	if err := s.store.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	return &CheckoutResponse{
		ID:         sess.ID,
		Bolt11:     sess.Bolt11,
		AmountSats: sess.AmountSats,
	}, nil
}

// PaymentEvent is the parsed webhook body.
type PaymentEvent struct {
	Type        string
	PaymentHash string
}

// HandlePaymentEvent runs the webhook state machine for one delivery.
// It never returns an error for "nothing to do" cases (unknown hash,
// already-paid session, unrecognized event kind): the notifier delivers
// at least once and must always be acknowledged, or its retry policy
// would hammer the endpoint and re-run this machine. Real store failures
// are logged by the caller and still acknowledged.
func (s *Service) HandlePaymentEvent(ctx context.Context, ev PaymentEvent) error {
	if ev.Type != eventPaymentReceived {
		return nil
	}

	id, err := s.resolveSession(ctx, ev)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			log.Printf("[webhook] no session for event, dropping")
			return nil
		}
		return fmt.Errorf("resolve session: %w", err)
	}

	// The linchpin: exactly one concurrent delivery wins this CAS.
	err = s.store.UpdateStatus(ctx, id, session.StatusPending, session.StatusPaid, session.Extra{PaidAt: s.nowFunc().UTC()})
	if errors.Is(err, session.ErrStatusMismatch) {
		log.Printf("[webhook] session=%s already transitioned, dropping duplicate", id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("mark paid: %w", err)
	}

	s.metrics.Count(ctx, awsx.MetricPaymentsReceived)
	log.Printf("[webhook] session=%s paid", id)

	if s.publisher != nil {
		if err := s.publisher.PublishReportJob(ctx, awsx.ReportJob{SessionID: id, PaymentHash: ev.PaymentHash}); err != nil {
			// Session stays paid; the dispatch counter below never fires,
			// which is what surfaces the stuck session operationally.
			return fmt.Errorf("enqueue report job: %w", err)
		}
		s.metrics.Count(ctx, awsx.MetricReportsDispatched)
		return nil
	}

	s.metrics.Count(ctx, awsx.MetricReportsDispatched)
	return s.FinishReport(ctx, id)
}

func (s *Service) resolveSession(ctx context.Context, ev PaymentEvent) (string, error) {
	if ev.PaymentHash != "" {
		sess, err := s.store.GetByPaymentHash(ctx, ev.PaymentHash)
		if err != nil {
			return "", err
		}
		return sess.ID, nil
	}
	if !s.fifoFallback {
		return "", session.ErrNotFound
	}
	return s.store.ClaimOldestPending(ctx)
}

// FinishReport generates the report for a paid session and records the
// terminal outcome. Safe to call more than once: sessions already
// complete or failed are left alone, and the paid->complete/failed CAS
// drops this caller's result if another finished first. A failed
// generation is recorded and never retried.
func (s *Service) FinishReport(ctx context.Context, id string) error {
	sess, err := s.store.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("fetch session: %w", err)
	}
	switch sess.Status {
	case session.StatusComplete, session.StatusFailed:
		log.Printf("[report] session=%s already %s", id, sess.Status)
		return nil
	case session.StatusPending:
		return fmt.Errorf("session %s not paid yet", id)
	}

	var params research.Params
	if err := json.Unmarshal([]byte(sess.ParamsJSON), &params); err != nil {
		return fmt.Errorf("decode stored params: %w", err)
	}

	html, genErr := s.generator.Generate(ctx, params)
	if genErr != nil {
		log.Printf("[report] session=%s generation failed: %v", id, genErr)
		err := s.store.UpdateStatus(ctx, id, session.StatusPaid, session.StatusFailed, session.Extra{})
		if err != nil && !errors.Is(err, session.ErrStatusMismatch) {
			return fmt.Errorf("mark failed: %w", err)
		}
		s.metrics.Count(ctx, awsx.MetricReportsFailed)
		return nil
	}

	err = s.store.UpdateStatus(ctx, id, session.StatusPaid, session.StatusComplete, session.Extra{ResultHTML: html})
	if errors.Is(err, session.ErrStatusMismatch) {
		log.Printf("[report] session=%s finished elsewhere, dropping result", id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("mark complete: %w", err)
	}
	s.metrics.Count(ctx, awsx.MetricReportsCompleted)
	log.Printf("[report] session=%s complete", id)
	return nil
}

// Status returns the session for client-visible status queries. Pure
// read; callers decide which fields to expose.
func (s *Service) Status(ctx context.Context, id string) (*session.Session, error) {
	return s.store.GetByID(ctx, id)
}
