package sqs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/couchcryptid/deal-discovery/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSQS struct {
	in  *awssqs.SendMessageInput
	err error
}

func (f *fakeSQS) SendMessage(_ context.Context, in *awssqs.SendMessageInput, _ ...func(*awssqs.Options)) (*awssqs.SendMessageOutput, error) {
	f.in = in
	if f.err != nil {
		return nil, f.err
	}
	return &awssqs.SendMessageOutput{MessageId: aws.String("m-1")}, nil
}

func testResult() domain.EnrichmentResult {
	return domain.EnrichmentResult{
		PhotoID:        "p-1",
		PhotoKey:       "photos/p-1.jpg",
		Location:       domain.Coordinate{Latitude: 40.7128, Longitude: -74.006},
		LocationSource: domain.LocationGeotag,
		DetectedText:   "2 for 1",
		Timestamp:      time.Date(2024, 11, 19, 20, 0, 0, 0, time.UTC),
	}
}

func TestPublisher_Publish(t *testing.T) {
	fake := &fakeSQS{}
	p := NewPublisher(fake, "https://sqs.us-east-1.amazonaws.com/123/processing", slog.New(slog.NewTextHandler(io.Discard, nil)))

	require.NoError(t, p.Publish(context.Background(), testResult()))

	require.NotNil(t, fake.in)
	assert.Equal(t, "https://sqs.us-east-1.amazonaws.com/123/processing", aws.ToString(fake.in.QueueUrl))
	assert.JSONEq(t, `{
		"photoId": "p-1",
		"photoKey": "photos/p-1.jpg",
		"location": {"latitude": 40.7128, "longitude": -74.006},
		"locationSource": "geotag",
		"detectedText": "2 for 1",
		"timestamp": "2024-11-19T20:00:00.000Z"
	}`, aws.ToString(fake.in.MessageBody))
	assert.Equal(t, "p-1", aws.ToString(fake.in.MessageAttributes["photo_id"].StringValue))
	assert.Equal(t, "2024-11-19T20:00:00Z", aws.ToString(fake.in.MessageAttributes["published_at"].StringValue))
}

func TestPublisher_PublishError(t *testing.T) {
	cause := errors.New("QueueDoesNotExist")
	p := NewPublisher(&fakeSQS{err: cause}, "url", slog.New(slog.NewTextHandler(io.Discard, nil)))

	err := p.Publish(context.Background(), testResult())
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
}
