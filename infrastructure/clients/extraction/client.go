package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"downloader/domain/dto"
	"downloader/domain/model"
	"downloader/infrastructure/logger"
)

// IExtractor is the outbound port to the media extraction service.
type IExtractor interface {
	// Extract asks the service to fetch the media. A non-nil response with
	// Success=false is a service-reported failure, not a transport error.
	Extract(ctx context.Context, url string, fileType model.DownloadType, formatID string) (*dto.ExtractionResponse, error)
	// Formats proxies the format listing for url verbatim.
	Formats(ctx context.Context, url string) (json.RawMessage, error)
}

// Client calls the extraction service over JSON/HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) IExtractor {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// endpoint maps a download type to its service route.
func (c *Client) endpoint(fileType model.DownloadType) string {
	return fmt.Sprintf("%s/api/download/%s", c.baseURL, fileType)
}

func (c *Client) Extract(ctx context.Context, url string, fileType model.DownloadType, formatID string) (*dto.ExtractionResponse, error) {
	if !fileType.Valid() {
		return nil, &model.ExtractionFailure{Message: "Invalid download type"}
	}
	body := dto.ExtractionRequest{URL: url}
	if fileType == model.TypeVideo {
		body.FormatID = formatID
	}

	raw, status, err := c.post(ctx, c.endpoint(fileType), body)
	if err != nil {
		return nil, err
	}

	var resp dto.ExtractionResponse
	if status < 200 || status > 299 {
		return nil, statusFailure(status, raw)
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &model.ExtractionFailure{Message: fmt.Sprintf("invalid extraction response: %v", err), Cause: err}
	}
	return &resp, nil
}

func (c *Client) Formats(ctx context.Context, url string) (json.RawMessage, error) {
	raw, status, err := c.post(ctx, c.baseURL+"/api/formats", dto.FormatsRequest{URL: url})
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, statusFailure(status, raw)
	}
	if !json.Valid(raw) {
		return nil, &model.ExtractionFailure{Message: "invalid formats response"}
	}
	return json.RawMessage(raw), nil
}

func (c *Client) post(ctx context.Context, url string, payload any) ([]byte, int, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		logger.GetLogger().WithFields(map[string]interface{}{
			"error": err,
			"url":   url,
		}).Error("extraction request failed")
		return nil, 0, &model.ExtractionFailure{Message: err.Error(), Cause: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, &model.ExtractionFailure{Message: err.Error(), Cause: err}
	}
	logger.GetLogger().WithFields(map[string]interface{}{
		"url":         url,
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("extraction service responded")
	return raw, resp.StatusCode, nil
}

// statusFailure prefers the service's own error message over the status line.
func statusFailure(status int, raw []byte) error {
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		return &model.ExtractionFailure{Message: body.Error}
	}
	return &model.ExtractionFailure{Message: fmt.Sprintf("Request failed with status code %d", status)}
}
