package awsx

import (
	"context"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// Metric names emitted by the kiosk.
const (
	MetricPaymentsReceived  = "PaymentsReceived"
	MetricReportsDispatched = "ReportsDispatched"
	MetricReportsCompleted  = "ReportsCompleted"
	MetricReportsFailed     = "ReportsFailed"
)

// Metrics emits best-effort counters to CloudWatch. A nil *Metrics is
// valid and counts nothing, so callers never need to guard.
type Metrics struct {
	client    CloudWatchAPI
	namespace string
}

// NewMetrics returns a Metrics bound to a namespace, or nil when no
// client is configured.
func NewMetrics(client CloudWatchAPI, namespace string) *Metrics {
	if client == nil {
		return nil
	}
	return &Metrics{client: client, namespace: namespace}
}

// Count increments a named counter by 1. Failures are logged, never
// surfaced: losing a datapoint must not affect the payment flow.
func (m *Metrics) Count(ctx context.Context, name string) {
	if m == nil {
		return
	}
	now := time.Now().UTC()
	one := float64(1)
	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: &m.namespace,
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: &name,
				Timestamp:  &now,
				Value:      &one,
				Unit:       cwtypes.StandardUnitCount,
			},
		},
	})
	if err != nil {
		log.Printf("[metrics] put %s failed: %v", name, err)
	}
}
