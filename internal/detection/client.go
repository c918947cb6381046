package detection

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"net/http"
	"time"
)

type ClientConfig struct {
	URL         string
	Timeout     time.Duration
	JPEGQuality int
	MinScore    float64
}

// Client sends frames to a remote inference server and decodes its detections.
type Client struct {
	httpClient *http.Client
	url        string
	quality    int
	minScore   float64
}

func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	quality := cfg.JPEGQuality
	if quality == 0 {
		quality = 90
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		url:        cfg.URL,
		quality:    quality,
		minScore:   cfg.MinScore,
	}
}

type wireDetection struct {
	Box        *Box     `json:"box"`
	Confidence *float64 `json:"confidence"`
	Class      *string  `json:"class"`
}

type inferenceResponse struct {
	Detections []wireDetection `json:"detections"`
}

// detection converts a decoded entry, marking the first absent field so the
// detection fails validation instead of defaulting to a zero value.
func (w wireDetection) detection() Detection {
	var d Detection
	if w.Class != nil {
		d.Class = *w.Class
	}
	switch {
	case w.Class == nil:
		d.missing = "class"
	case w.Confidence == nil:
		d.missing = "confidence"
	case w.Box == nil:
		d.missing = "box"
	}
	if w.Confidence != nil {
		d.Confidence = *w.Confidence
	}
	if w.Box != nil {
		d.Box = *w.Box
	}
	return d
}

func (c *Client) Detect(ctx context.Context, img image.Image) ([]Detection, error) {
	if img == nil {
		return nil, fmt.Errorf("no frame provided")
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: c.quality}); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "image/jpeg")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inference request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("inference server returned status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	var out inferenceResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	dets := make([]Detection, 0, len(out.Detections))
	for _, w := range out.Detections {
		d := w.detection()
		if c.minScore > 0 && d.missing == "" && d.Confidence < c.minScore {
			continue
		}
		dets = append(dets, d)
	}
	return dets, nil
}

func (c *Client) IsAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.url, nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode < http.StatusInternalServerError
}

func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
