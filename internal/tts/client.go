package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/lectorium/server/internal/config"
)

var (
	ErrTranscodeFailed  = errors.New("speech synthesis failed")
	ErrTranscodeTimeout = errors.New("speech synthesis timed out")
)

const (
	defaultPollInterval = 3 * time.Second
	defaultMaxAttempts  = 20
)

// Synthesizer converts text into narrated audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// JobClient drives an asynchronous synthesis provider: submit the text,
// poll the job until it settles, then download the rendered audio. There is
// no retry across jobs; each failed poll attempt only consumes one slot of
// the polling budget.
type JobClient struct {
	baseURL  string
	client   *http.Client
	interval time.Duration
	attempts int
}

// NewJobClient builds a client for the configured provider. When client
// credentials are set, requests are authenticated through an OAuth2
// client-credentials token source.
func NewJobClient(cfg config.TTSConfig) *JobClient {
	client := http.DefaultClient
	if cfg.ClientID != "" && cfg.ClientSecret != "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
		}
		client = cc.Client(context.Background())
	}
	return &JobClient{
		baseURL:  strings.TrimSuffix(cfg.BaseURL, "/"),
		client:   client,
		interval: defaultPollInterval,
		attempts: defaultMaxAttempts,
	}
}

type jobStatus struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	ResultURL string `json:"resultUrl"`
}

// Synthesize submits the text and waits, bounded by the polling budget, for
// the rendered audio.
func (c *JobClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	jobID, err := c.submit(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTranscodeFailed, err)
	}

	for attempt := 0; attempt < c.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.interval):
			}
		}

		status, err := c.poll(ctx, jobID)
		if err != nil {
			log.Printf("tts: poll attempt %d for job %s failed: %v", attempt+1, jobID, err)
			continue
		}

		switch status.Status {
		case "succeeded":
			return c.fetch(ctx, status.ResultURL)
		case "failed":
			return nil, ErrTranscodeFailed
		}
	}

	return nil, ErrTranscodeTimeout
}

func (c *JobClient) submit(ctx context.Context, text string) (string, error) {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/jobs", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("submit returned status %d", resp.StatusCode)
	}

	var job jobStatus
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return "", err
	}
	if job.ID == "" {
		return "", errors.New("submit response carried no job id")
	}
	return job.ID, nil
}

func (c *JobClient) poll(ctx context.Context, jobID string) (*jobStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/jobs/"+jobID, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status poll returned %d", resp.StatusCode)
	}

	var status jobStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *JobClient) fetch(ctx context.Context, resultURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resultURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTranscodeFailed, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTranscodeFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: result fetch returned status %d", ErrTranscodeFailed, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
