package sensor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const maxSnapshotSize = 10 << 20

// HTTPSnapshotSource fetches still frames from a camera's snapshot endpoint.
type HTTPSnapshotSource struct {
	url      string
	user     string
	password string
	client   *http.Client
}

func NewHTTPSnapshotSource(url, user, password string) *HTTPSnapshotSource {
	return &HTTPSnapshotSource{
		url:      url,
		user:     user,
		password: password,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

func (s *HTTPSnapshotSource) Capture(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	if s.user != "" {
		req.SetBasicAuth(s.user, s.password)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch snapshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch snapshot: unexpected status %d", resp.StatusCode)
	}

	frame, err := io.ReadAll(io.LimitReader(resp.Body, maxSnapshotSize))
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	if len(frame) == 0 {
		return nil, fmt.Errorf("empty snapshot")
	}
	return frame, nil
}
