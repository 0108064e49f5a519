package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"signal_engine/internal/models"
	"signal_engine/pkg/retry"

	"github.com/bytedance/sonic"
)

// Source оценивает срез рынка и иногда возвращает кандидата.
type Source interface {
	Match(ctx context.Context, snap models.Snapshot) (models.Candidate, bool, error)
}

// Client ходит во внешний сервис сценариев.
type Client struct {
	http *http.Client
	url  string
}

func NewClient(url string, timeout time.Duration) *Client {
	return &Client{
		http: &http.Client{Timeout: timeout},
		url:  url,
	}
}

// Match шлёт снапшот и ждёт кандидата. matched=false — сценарий не
// сработал, это не ошибка.
func (c *Client) Match(ctx context.Context, snap models.Snapshot) (models.Candidate, bool, error) {
	body, err := sonic.Marshal(snap)
	if err != nil {
		return models.Candidate{}, false, fmt.Errorf("encode snapshot: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/v1/match", bytes.NewReader(body))
	if err != nil {
		return models.Candidate{}, false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return models.Candidate{}, false, retry.Temporary(fmt.Errorf("scenario request: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Candidate{}, false, retry.Temporary(fmt.Errorf("read body: %w", err))
	}
	if resp.StatusCode/100 != 2 {
		err := fmt.Errorf("scenario http %d: %s", resp.StatusCode, string(raw))
		if resp.StatusCode >= 500 {
			return models.Candidate{}, false, retry.Temporary(err)
		}
		return models.Candidate{}, false, retry.Permanent(err)
	}

	var payload struct {
		Matched   bool             `json:"matched"`
		Candidate models.Candidate `json:"candidate"`
	}
	if err := sonic.Unmarshal(raw, &payload); err != nil {
		return models.Candidate{}, false, fmt.Errorf("decode candidate: %w", err)
	}
	if !payload.Matched {
		return models.Candidate{}, false, nil
	}
	return payload.Candidate, true, nil
}

// None — источник-заглушка, когда сервис сценариев не сконфигурирован.
type None struct{}

func (None) Match(context.Context, models.Snapshot) (models.Candidate, bool, error) {
	return models.Candidate{}, false, nil
}
