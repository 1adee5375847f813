package awsx

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// ReportJob is the payload handed from the webhook to the report worker.
type ReportJob struct {
	SessionID   string `json:"session_id"`
	PaymentHash string `json:"payment_hash,omitempty"`
}

// Publisher wraps an SQS client and a queue URL. Publishing a ReportJob is
// the durable hand-off that lets the webhook respond before the report is
// generated without risking dropped work.
type Publisher struct {
	SQS      SQSAPI
	QueueURL string
}

// NewPublisher returns a Publisher bound to a queue URL.
func NewPublisher(sqsClient SQSAPI, queueURL string) *Publisher {
	return &Publisher{
		SQS:      sqsClient,
		QueueURL: queueURL,
	}
}

// PublishReportJob enqueues a report-generation job for the worker.
func (p *Publisher) PublishReportJob(ctx context.Context, job ReportJob) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal report job: %w", err)
	}
	bodyStr := string(body)

	input := &sqs.SendMessageInput{
		QueueUrl:    &p.QueueURL,
		MessageBody: &bodyStr,
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			"session_id": {
				DataType:    awsString("String"),
				StringValue: &job.SessionID,
			},
		},
	}

	if _, err := p.SQS.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// awsString helper
func awsString(s string) *string { return &s }
