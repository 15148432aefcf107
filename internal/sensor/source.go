package sensor

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"parking-gate-service/internal/domain/parking"
)

// DefaultProximityLimit is the distance at or below which a vehicle is
// considered to be in front of the camera.
const DefaultProximityLimit = 50

type Proximity interface {
	Distance(ctx context.Context) (float64, error)
}

type FrameSource interface {
	Capture(ctx context.Context) ([]byte, error)
}

type Recognizer interface {
	Recognize(ctx context.Context, frame []byte) ([]parking.PlateObservation, error)
}

// StaticProximity reports a fixed distance. A zero value keeps the lane
// permanently active, for lanes without a distance sensor.
type StaticProximity float64

func (p StaticProximity) Distance(context.Context) (float64, error) {
	return float64(p), nil
}

// CameraSource runs one capture cycle per call: it waits for a vehicle in
// range, grabs a frame and passes it to the recognizer.
type CameraSource struct {
	cameraID   string
	proximity  Proximity
	frames     FrameSource
	recognizer Recognizer
	limit      float64
	idle       time.Duration
	now        func() time.Time
	log        zerolog.Logger
}

func NewCameraSource(cameraID string, proximity Proximity, frames FrameSource, recognizer Recognizer, limit float64, idle time.Duration, log zerolog.Logger) *CameraSource {
	if limit <= 0 {
		limit = DefaultProximityLimit
	}
	if idle <= 0 {
		idle = 500 * time.Millisecond
	}
	return &CameraSource{
		cameraID:   cameraID,
		proximity:  proximity,
		frames:     frames,
		recognizer: recognizer,
		limit:      limit,
		idle:       idle,
		now:        time.Now,
		log:        log.With().Str("camera_id", cameraID).Logger(),
	}
}

func (s *CameraSource) Next(ctx context.Context) ([]parking.PlateObservation, error) {
	distance, err := s.proximity.Distance(ctx)
	if err != nil {
		return nil, err
	}
	if distance > s.limit {
		timer := time.NewTimer(s.idle)
		defer timer.Stop()
		select {
		case <-timer.C:
			return nil, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	frame, err := s.frames.Capture(ctx)
	if err != nil {
		return nil, err
	}

	observations, err := s.recognizer.Recognize(ctx, frame)
	if err != nil {
		return nil, err
	}

	at := s.now()
	for i := range observations {
		observations[i].CameraID = s.cameraID
		if observations[i].Timestamp.IsZero() {
			observations[i].Timestamp = at
		}
	}
	s.log.Debug().Float64("distance", distance).Int("observations", len(observations)).Msg("capture cycle")
	return observations, nil
}
