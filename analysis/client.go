package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/d1nch8g/vocalize/logger"
)

const (
	DefaultFieldName   = "file"
	DefaultFileName    = "recording.wav"
	DefaultContentType = "audio/wav"
)

type Config struct {
	URL string
	// HealthURL defaults to /health on the host of URL.
	HealthURL   string
	Timeout     time.Duration
	FieldName   string
	FileName    string
	ContentType string
}

// Client talks to the fluency analysis service over HTTP.
type Client struct {
	config Config
	http   *resty.Client
	logger logger.Logger
}

var _ Analyzer = (*Client)(nil)

func NewClient(config Config, log logger.Logger) *Client {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.FieldName == "" {
		config.FieldName = DefaultFieldName
	}
	if config.FileName == "" {
		config.FileName = DefaultFileName
	}
	if config.ContentType == "" {
		config.ContentType = DefaultContentType
	}

	return &Client{
		config: config,
		http:   resty.New().SetTimeout(config.Timeout).SetRetryCount(0),
		logger: log,
	}
}

type fluencyMetrics struct {
	FluencyScore    *float64 `json:"fluency_score"`
	WPM             *float64 `json:"wpm"`
	AverageWordTime float64  `json:"avg_word_time"`
	FillerRate      float64  `json:"filler_rate"`
	PauseFrequency  float64  `json:"pause_frequency"`
	LongPauses      int      `json:"long_pauses"`
}

type response struct {
	Transcript     *string         `json:"transcript"`
	WordCount      int             `json:"word_count"`
	Words          []Word          `json:"words"`
	FluencyMetrics *fluencyMetrics `json:"fluency_metrics"`
	Error          string          `json:"error"`
	Details        string          `json:"details"`
}

func (c *Client) Submit(ctx context.Context, audio []byte) (*Result, error) {
	started := time.Now()

	res, err := c.http.R().
		SetContext(ctx).
		SetMultipartField(c.config.FieldName, c.config.FileName, c.config.ContentType, bytes.NewReader(audio)).
		Post(c.config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to send analysis request: %w", err)
	}

	c.logger.Debugw("analysis response received",
		"status", res.StatusCode(),
		"bytes_sent", len(audio),
		"elapsed", time.Since(started))

	if !res.IsSuccess() {
		return nil, fmt.Errorf("%w: %d %s", ErrStatus, res.StatusCode(), truncate(res.String(), 200))
	}

	return decode(res.Body())
}

func decode(body []byte) (*Result, error) {
	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if resp.Error != "" {
		if resp.Details != "" {
			return nil, fmt.Errorf("%w: %s: %s", ErrRejected, resp.Error, truncate(resp.Details, 200))
		}
		return nil, fmt.Errorf("%w: %s", ErrRejected, resp.Error)
	}
	if resp.Transcript == nil {
		return nil, fmt.Errorf("%w: missing transcript", ErrMalformed)
	}
	if resp.FluencyMetrics == nil {
		return nil, fmt.Errorf("%w: missing fluency_metrics", ErrMalformed)
	}

	m := resp.FluencyMetrics
	if m.FluencyScore == nil {
		return nil, fmt.Errorf("%w: missing fluency_score", ErrMalformed)
	}
	if m.WPM == nil {
		return nil, fmt.Errorf("%w: missing wpm", ErrMalformed)
	}

	return &Result{
		Transcript:      *resp.Transcript,
		FluencyScore:    *m.FluencyScore,
		WordsPerMinute:  *m.WPM,
		WordCount:       resp.WordCount,
		Words:           resp.Words,
		AverageWordTime: m.AverageWordTime,
		FillerRate:      m.FillerRate,
		PauseFrequency:  m.PauseFrequency,
		LongPauses:      m.LongPauses,
	}, nil
}

// Health probes the service health endpoint.
func (c *Client) Health(ctx context.Context) error {
	target, err := c.healthURL()
	if err != nil {
		return err
	}
	res, err := c.http.R().SetContext(ctx).Get(target)
	if err != nil {
		return fmt.Errorf("analysis service unreachable: %w", err)
	}
	if !res.IsSuccess() {
		return fmt.Errorf("%w: health %d", ErrStatus, res.StatusCode())
	}
	return nil
}

func (c *Client) healthURL() (string, error) {
	if c.config.HealthURL != "" {
		return c.config.HealthURL, nil
	}
	u, err := url.Parse(c.config.URL)
	if err != nil {
		return "", fmt.Errorf("invalid analysis url: %w", err)
	}
	u.Path = "/health"
	u.RawQuery = ""
	return u.String(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
