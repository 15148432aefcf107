package sensor

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/rs/zerolog"

	"parking-gate-service/internal/domain/parking"
)

type DetectTextAPI interface {
	DetectText(ctx context.Context, params *rekognition.DetectTextInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectTextOutput, error)
}

// RekognitionRecognizer reads text lines from a frame with AWS Rekognition.
// Every detected line is returned as a candidate; plate validation happens
// downstream.
type RekognitionRecognizer struct {
	client        DetectTextAPI
	minConfidence float32
	log           zerolog.Logger
}

func NewRekognitionRecognizer(client DetectTextAPI, minConfidence float32, log zerolog.Logger) *RekognitionRecognizer {
	return &RekognitionRecognizer{client: client, minConfidence: minConfidence, log: log}
}

func (r *RekognitionRecognizer) Recognize(ctx context.Context, frame []byte) ([]parking.PlateObservation, error) {
	out, err := r.client.DetectText(ctx, &rekognition.DetectTextInput{
		Image: &types.Image{Bytes: frame},
	})
	if err != nil {
		return nil, fmt.Errorf("rekognition detect text: %w", err)
	}

	var observations []parking.PlateObservation
	for _, td := range out.TextDetections {
		if td.Type != types.TextTypesLine || td.DetectedText == nil {
			continue
		}
		if aws.ToFloat32(td.Confidence) < r.minConfidence {
			continue
		}

		obs := parking.PlateObservation{RawText: aws.ToString(td.DetectedText)}
		if td.Geometry != nil && td.Geometry.BoundingBox != nil {
			box := td.Geometry.BoundingBox
			obs.Region = parking.Region{
				Left:   float64(aws.ToFloat32(box.Left)),
				Top:    float64(aws.ToFloat32(box.Top)),
				Width:  float64(aws.ToFloat32(box.Width)),
				Height: float64(aws.ToFloat32(box.Height)),
			}
		}
		observations = append(observations, obs)
	}

	r.log.Debug().Int("lines", len(observations)).Msg("text detected")
	return observations, nil
}
