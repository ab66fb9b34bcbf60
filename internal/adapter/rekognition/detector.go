// Package rekognition detects printed text in stored photos with AWS Rekognition.
package rekognition

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsrek "github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/couchcryptid/deal-discovery/internal/domain"
)

// API is the subset of the Rekognition client the detector uses.
type API interface {
	DetectText(ctx context.Context, in *awsrek.DetectTextInput, optFns ...func(*awsrek.Options)) (*awsrek.DetectTextOutput, error)
}

// Detector runs DetectText against images already in S3.
// It implements ocr.Detector.
type Detector struct {
	client API
}

// NewDetector creates a Detector. Pass awsrek.NewFromConfig(cfg) as client.
func NewDetector(client API) *Detector {
	return &Detector{client: client}
}

// DetectText returns the detections in the order Rekognition reports them.
func (d *Detector) DetectText(ctx context.Context, image domain.ImageRef) ([]domain.TextDetection, error) {
	out, err := d.client.DetectText(ctx, &awsrek.DetectTextInput{
		Image: &types.Image{
			S3Object: &types.S3Object{
				Bucket: aws.String(image.Bucket),
				Name:   aws.String(image.Key),
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("rekognition detect text: %w", err)
	}

	detections := make([]domain.TextDetection, 0, len(out.TextDetections))
	for _, td := range out.TextDetections {
		detections = append(detections, domain.TextDetection{
			Granularity: granularity(td.Type),
			Text:        aws.ToString(td.DetectedText),
		})
	}
	return detections, nil
}

func granularity(t types.TextTypes) domain.Granularity {
	if t == types.TextTypesLine {
		return domain.GranularityLine
	}
	return domain.GranularityWord
}
