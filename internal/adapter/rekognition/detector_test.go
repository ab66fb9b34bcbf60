package rekognition

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsrek "github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/couchcryptid/deal-discovery/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRekognition struct {
	in  *awsrek.DetectTextInput
	out *awsrek.DetectTextOutput
	err error
}

func (f *fakeRekognition) DetectText(_ context.Context, in *awsrek.DetectTextInput, _ ...func(*awsrek.Options)) (*awsrek.DetectTextOutput, error) {
	f.in = in
	return f.out, f.err
}

func TestDetector_DetectText(t *testing.T) {
	fake := &fakeRekognition{out: &awsrek.DetectTextOutput{
		TextDetections: []types.TextDetection{
			{Type: types.TextTypesLine, DetectedText: aws.String("HAPPY HOUR")},
			{Type: types.TextTypesLine, DetectedText: aws.String("$3 drafts")},
			{Type: types.TextTypesWord, DetectedText: aws.String("HAPPY")},
		},
	}}
	d := NewDetector(fake)

	got, err := d.DetectText(context.Background(), domain.ImageRef{Bucket: "deal-photos", Key: "photos/a.jpg"})
	require.NoError(t, err)

	assert.Equal(t, []domain.TextDetection{
		{Granularity: domain.GranularityLine, Text: "HAPPY HOUR"},
		{Granularity: domain.GranularityLine, Text: "$3 drafts"},
		{Granularity: domain.GranularityWord, Text: "HAPPY"},
	}, got)
	assert.Equal(t, "deal-photos", aws.ToString(fake.in.Image.S3Object.Bucket))
	assert.Equal(t, "photos/a.jpg", aws.ToString(fake.in.Image.S3Object.Name))
}

func TestDetector_NoText(t *testing.T) {
	d := NewDetector(&fakeRekognition{out: &awsrek.DetectTextOutput{}})

	got, err := d.DetectText(context.Background(), domain.ImageRef{Key: "photos/blank.jpg"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDetector_Error(t *testing.T) {
	cause := errors.New("InvalidImageFormatException")
	d := NewDetector(&fakeRekognition{err: cause})

	_, err := d.DetectText(context.Background(), domain.ImageRef{Key: "photos/bad.jpg"})
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
}
