package ocr

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// RemoteEngine posts the page image to an HTTP OCR service and reads the
// recognized text from its JSON response. It is tried before the local
// engine because hosted recognizers handle low-quality scans better.
type RemoteEngine struct {
	client *resty.Client
	url    string
}

func NewRemoteEngine(url, apiKey string) *RemoteEngine {
	client := resty.New().
		SetTimeout(30 * time.Second).
		SetRetryCount(1)
	if apiKey != "" {
		client.SetHeader("Authorization", "Bearer "+apiKey)
	}
	return &RemoteEngine{client: client, url: url}
}

func (e *RemoteEngine) Name() string { return "remote" }

func (e *RemoteEngine) Available() bool { return e.url != "" }

func (e *RemoteEngine) Recognize(ctx context.Context, image []byte) (string, error) {
	var out struct {
		Text string `json:"text"`
	}

	resp, err := e.client.R().
		SetContext(ctx).
		SetFileReader("file", "page.png", bytes.NewReader(image)).
		SetResult(&out).
		Post(e.url)
	if err != nil {
		return "", fmt.Errorf("remote ocr request: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("remote ocr status %d: %s", resp.StatusCode(), resp.String())
	}
	return out.Text, nil
}
