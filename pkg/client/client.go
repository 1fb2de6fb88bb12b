// Package client StreamPipes 파이프라인 백엔드 REST 클라이언트
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Kshitiz-Mhto/streampipes/pkg/models"
)

// Config 클라이언트 설정
type Config struct {
	BaseURL    string        `json:"base_url"`
	Username   string        `json:"username"`
	Token      string        `json:"-"`
	Timeout    time.Duration `json:"timeout"`
	HTTPClient *http.Client  `json:"-"`
	Logger     *slog.Logger  `json:"-"`
}

// Client 파이프라인 게이트웨이
// 요청마다 한 번만 시도하며 재시도와 캐시는 없음
type Client struct {
	basePath   string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// ErrEmptyDocument 요청 본문이 될 문서가 nil
var ErrEmptyDocument = errors.New("request document is required")

// StatusError 2xx 이외 응답
type StatusError struct {
	StatusCode int
	APIError   *models.APIError
	Body       string
}

// Error implements error interface
func (e *StatusError) Error() string {
	if e.APIError != nil {
		return fmt.Sprintf("server returned error %d: %s (%s)", e.StatusCode, e.APIError.Message, e.APIError.Code)
	}
	return fmt.Sprintf("server returned error %d: %s", e.StatusCode, e.Body)
}

// IsNotFound 404 응답 여부
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

// New 새 클라이언트 생성
func New(cfg *Config) (*Client, error) {
	if cfg == nil || cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if cfg.Username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		basePath:   fmt.Sprintf("%s/api/v2/users/%s", strings.TrimRight(cfg.BaseURL, "/"), url.PathEscape(cfg.Username)),
		token:      cfg.Token,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// BasePath 사용자 기준 API 경로
func (c *Client) BasePath() string {
	return c.basePath
}

// do 요청 전송 후 out에 JSON 디코딩 (out이 nil이면 본문 무시)
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	raw, err := c.send(ctx, method, path, in)
	if err != nil {
		return err
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, in any) (json.RawMessage, error) {
	endpoint := c.basePath + path

	body := io.Reader(http.NoBody)
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	c.logger.Debug("pipeline api request", "method", method, "path", path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		se := &StatusError{StatusCode: resp.StatusCode, Body: string(data)}
		var apiErr models.APIError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Code != "" {
			se.APIError = &apiErr
		}
		return nil, se
	}

	return json.RawMessage(data), nil
}
