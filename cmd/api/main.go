package main

import (
	"context"
	"log"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"github.com/waffleclaw/xray/internal/awsx"
	"github.com/waffleclaw/xray/internal/checkout"
	"github.com/waffleclaw/xray/internal/config"
	"github.com/waffleclaw/xray/internal/handlers"
	"github.com/waffleclaw/xray/internal/lightning"
	"github.com/waffleclaw/xray/internal/research"
	"github.com/waffleclaw/xray/internal/session"
)

func setupRouter(cfg handlers.HandlerConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// health
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handlers.RegisterRoutes(r, cfg)

	return r
}

func buildStore(ctx context.Context, cfg config.Config, clients *awsx.Clients) (session.Store, error) {
	if cfg.StoreBackend == "dynamo" {
		return session.NewDynamoStore(clients.DynamoDB, cfg.SessionsTable), nil
	}
	return session.OpenSQLite(cfg.SQLitePath)
}

func main() {
	ctx := context.Background()
	cfg := config.Load()

	var clients *awsx.Clients
	if cfg.StoreBackend == "dynamo" || cfg.ReportsQueueURL != "" || !cfg.RunLocal {
		var err error
		clients, err = awsx.NewClients(ctx)
		if err != nil {
			log.Fatalf("failed to init aws clients: %v", err)
		}
	}

	store, err := buildStore(ctx, cfg, clients)
	if err != nil {
		log.Fatalf("failed to open session store: %v", err)
	}

	issuer := lightning.NewOrangeIssuer(cfg.OrangeBin, cfg.OrangeConfig)
	generator := research.NewXAIClient(cfg.XAIAPIKey, cfg.XAIModel)

	var opts []checkout.Option
	if cfg.ReportsQueueURL != "" && clients != nil {
		opts = append(opts, checkout.WithPublisher(awsx.NewPublisher(clients.SQS, cfg.ReportsQueueURL)))
	}
	if clients != nil {
		opts = append(opts, checkout.WithMetrics(awsx.NewMetrics(clients.CloudWatch, cfg.MetricsNamespace)))
	}
	if cfg.FIFOFallback {
		opts = append(opts, checkout.WithFIFOFallback())
	}
	svc := checkout.NewService(store, issuer, generator, cfg.AmountSats, opts...)

	r := setupRouter(handlers.HandlerConfig{
		Service:       svc,
		Generator:     generator,
		WebhookSecret: cfg.WebhookSecret,
	})

	// if RUN_LOCAL is set to "true", run a local HTTP server for development.
	if cfg.RunLocal {
		log.Printf("running local server on %s", cfg.ListenAddr)
		if err := r.Run(cfg.ListenAddr); err != nil {
			log.Fatalf("failed to run local server: %v", err)
		}
		return
	}

	// lambda adapter
	adapter := ginadapter.New(r)

	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (interface{}, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}
