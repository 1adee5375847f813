package awsx

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureCW struct {
	inputs []*cloudwatch.PutMetricDataInput
	err    error
}

func (c *captureCW) PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	c.inputs = append(c.inputs, params)
	return &cloudwatch.PutMetricDataOutput{}, c.err
}

func TestMetricsCount(t *testing.T) {
	cw := &captureCW{}
	m := NewMetrics(cw, "XRayKiosk")

	m.Count(context.Background(), MetricPaymentsReceived)

	require.Len(t, cw.inputs, 1)
	in := cw.inputs[0]
	assert.Equal(t, "XRayKiosk", *in.Namespace)
	require.Len(t, in.MetricData, 1)
	assert.Equal(t, MetricPaymentsReceived, *in.MetricData[0].MetricName)
	assert.Equal(t, float64(1), *in.MetricData[0].Value)
}

func TestMetricsCount_NilReceiver(t *testing.T) {
	var m *Metrics
	// Must not panic; metrics are strictly optional.
	m.Count(context.Background(), MetricPaymentsReceived)
}

func TestMetricsCount_SwallowsErrors(t *testing.T) {
	cw := &captureCW{err: errors.New("throttled")}
	m := NewMetrics(cw, "XRayKiosk")

	// Failure is logged, never surfaced.
	m.Count(context.Background(), MetricReportsFailed)
}

func TestNewMetrics_NilClient(t *testing.T) {
	assert.Nil(t, NewMetrics(nil, "XRayKiosk"))
}
