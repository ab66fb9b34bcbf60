// Package sqs publishes enrichment results to an AWS SQS queue.
package sqs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/couchcryptid/deal-discovery/internal/domain"
)

// API is the subset of the SQS client the publisher uses.
type API interface {
	SendMessage(ctx context.Context, in *awssqs.SendMessageInput, optFns ...func(*awssqs.Options)) (*awssqs.SendMessageOutput, error)
}

// Publisher sends one message per result.
// It implements pipeline.Publisher.
type Publisher struct {
	client   API
	queueURL string
	logger   *slog.Logger
}

// NewPublisher creates a Publisher for queueURL. Pass awssqs.NewFromConfig(cfg) as client.
func NewPublisher(client API, queueURL string, logger *slog.Logger) *Publisher {
	return &Publisher{client: client, queueURL: queueURL, logger: logger}
}

// Publish sends the result's JSON wire form with photo_id and published_at attributes.
func (p *Publisher) Publish(ctx context.Context, result domain.EnrichmentResult) error {
	body, err := domain.MarshalMessage(result)
	if err != nil {
		return err
	}

	out, err := p.client.SendMessage(ctx, &awssqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"photo_id":     stringAttribute(result.PhotoID),
			"published_at": stringAttribute(result.Timestamp.UTC().Format(time.RFC3339)),
		},
	})
	if err != nil {
		return fmt.Errorf("send sqs message: %w", err)
	}

	p.logger.Debug("processing message sent", "photo_id", result.PhotoID, "message_id", aws.ToString(out.MessageId))
	return nil
}

func stringAttribute(v string) types.MessageAttributeValue {
	return types.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(v)}
}
