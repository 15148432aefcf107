package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"parking-gate-service/internal/domain/parking"
)

type SendMessageAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSPublisher forwards lane events to an SQS queue for downstream consumers
// such as billing or dashboards.
type SQSPublisher struct {
	client   SendMessageAPI
	queueURL string
}

func NewSQSPublisher(client SendMessageAPI, queueURL string) *SQSPublisher {
	return &SQSPublisher{client: client, queueURL: queueURL}
}

func (p *SQSPublisher) Record(ctx context.Context, event parking.LaneEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal lane event: %w", err)
	}

	_, err = p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"lane":    {DataType: aws.String("String"), StringValue: aws.String(string(event.Lane))},
			"outcome": {DataType: aws.String("String"), StringValue: aws.String(string(event.Outcome))},
		},
	})
	if err != nil {
		return fmt.Errorf("send lane event to sqs: %w", err)
	}
	return nil
}
