package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/aws/aws-lambda-go/events"
	"github.com/waffleclaw/xray/internal/awsx"
	"github.com/waffleclaw/xray/internal/checkout"
)

// Processor consumes report jobs off SQS and drives paid sessions to a
// terminal state through the checkout service.
type Processor struct {
	svc *checkout.Service
}

// NewProcessor creates a worker processor around a checkout service.
func NewProcessor(svc *checkout.Service) *Processor {
	return &Processor{svc: svc}
}

// Handle receives an SQS batch event and processes each message.
// Returning an error makes the runtime redeliver the batch, so only
// genuinely retryable failures propagate; duplicate and already-finished
// jobs are swallowed inside FinishReport.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) error {
	for _, rec := range ev.Records {
		if err := p.processMessage(ctx, rec); err != nil {
			log.Printf("worker error: %v", err)
			return err
		}
	}
	return nil
}

func (p *Processor) processMessage(ctx context.Context, rec events.SQSMessage) error {
	var job awsx.ReportJob
	if err := json.Unmarshal([]byte(rec.Body), &job); err != nil {
		return fmt.Errorf("invalid message body: %w", err)
	}
	if job.SessionID == "" {
		return fmt.Errorf("message without session_id: %s", rec.Body)
	}

	log.Printf("[worker] received session=%s", job.SessionID)
	return p.svc.FinishReport(ctx, job.SessionID)
}
