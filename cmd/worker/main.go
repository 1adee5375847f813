package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/waffleclaw/xray/internal/awsx"
	"github.com/waffleclaw/xray/internal/checkout"
	"github.com/waffleclaw/xray/internal/config"
	"github.com/waffleclaw/xray/internal/lightning"
	"github.com/waffleclaw/xray/internal/research"
	"github.com/waffleclaw/xray/internal/session"
)

func main() {
	ctx := context.Background()
	cfg := config.Load()

	var store session.Store
	var clients *awsx.Clients
	if cfg.StoreBackend == "dynamo" {
		var err error
		clients, err = awsx.NewClients(ctx)
		if err != nil {
			log.Fatalf("failed to init aws clients: %v", err)
		}
		store = session.NewDynamoStore(clients.DynamoDB, cfg.SessionsTable)
	} else {
		s, err := session.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			log.Fatalf("failed to open session store: %v", err)
		}
		store = s
	}

	generator := research.NewXAIClient(cfg.XAIAPIKey, cfg.XAIModel)

	var opts []checkout.Option
	if clients != nil {
		opts = append(opts, checkout.WithMetrics(awsx.NewMetrics(clients.CloudWatch, cfg.MetricsNamespace)))
	}
	// The worker never issues invoices; the issuer is wired for
	// completeness of the service but unused on this path.
	issuer := lightning.NewOrangeIssuer(cfg.OrangeBin, cfg.OrangeConfig)
	svc := checkout.NewService(store, issuer, generator, cfg.AmountSats, opts...)

	p := NewProcessor(svc)

	// If RUN_LOCAL=true, simulate a single SQS event for local testing.
	if cfg.RunLocal {
		body := `{"session_id":"local-session-1"}`
		ev := events.SQSEvent{
			Records: []events.SQSMessage{{Body: body}},
		}
		if err := p.Handle(ctx, ev); err != nil {
			log.Fatalf("local handler error: %v", err)
		}
		return
	}

	lambda.Start(p.Handle)
}
