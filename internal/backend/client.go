// Package backend is the REST client for the support backend: room
// resolution, message history, FAQ and image upload.
package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matheus3301/deskchat/internal/metrics"
	"github.com/matheus3301/deskchat/internal/model"
)

const (
	roomPath      = "/chat/room"
	historyPath   = "/chat/messages/{roomId}"
	faqPath       = "/questions"
	uploadPath    = "/upload/single"
	uploadFolder  = "general"
	uploadField   = "file"
	requestIDHead = "X-Request-ID"
)

var (
	// ErrForbidden is returned for HTTP 403. On room resolution it means the
	// merchant is blacklisted from support.
	ErrForbidden = errors.New("access denied")
	// ErrUnauthorized is returned for HTTP 401.
	ErrUnauthorized = errors.New("session expired, log in again")
)

// StatusError is any other non-2xx response.
type StatusError struct {
	Call string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 200 {
		body = body[:200]
	}
	if body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Call, e.Code)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Call, e.Code, body)
}

// Options configures a Client.
type Options struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	Logger  *zap.Logger
}

// Client talks to the support backend. It never retries.
type Client struct {
	http *resty.Client
	log  *zap.Logger
}

type historyResponse struct {
	Messages []model.Message `json:"messages"`
}

type uploadResponse struct {
	URL string `json:"url"`
}

// New creates a Client.
func New(opts Options) *Client {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	hc := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "deskchat/1.0").
		SetTimeout(timeout).
		SetRetryCount(0)
	if opts.Token != "" {
		hc.SetAuthToken(strings.TrimPrefix(opts.Token, "Bearer "))
	}
	hc.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
		r.SetHeader(requestIDHead, uuid.NewString())
		return nil
	})

	return &Client{http: hc, log: log.Named("backend")}
}

// ResolveRoom gets or creates the merchant's support room.
func (c *Client) ResolveRoom(ctx context.Context) (room model.Room, err error) {
	defer observe("room", time.Now(), &err)

	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&room).
		Get(roomPath)
	if err != nil {
		return model.Room{}, fmt.Errorf("resolve room: %w", err)
	}
	if err := c.check("resolve room", resp); err != nil {
		return model.Room{}, err
	}
	if room.ID == "" {
		return model.Room{}, errors.New("resolve room: response carries no roomId")
	}
	return room, nil
}

// History returns the prior messages of a room, oldest first.
func (c *Client) History(ctx context.Context, roomID string) (msgs []model.Message, err error) {
	defer observe("history", time.Now(), &err)

	var out historyResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("roomId", roomID).
		SetResult(&out).
		Get(historyPath)
	if err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}
	if err := c.check("fetch history", resp); err != nil {
		return nil, err
	}
	if out.Messages == nil {
		return []model.Message{}, nil
	}
	return out.Messages, nil
}

// FAQ returns the quick-help entries.
func (c *Client) FAQ(ctx context.Context) (entries []model.FAQEntry, err error) {
	defer observe("faq", time.Now(), &err)

	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&entries).
		Get(faqPath)
	if err != nil {
		return nil, fmt.Errorf("fetch faq: %w", err)
	}
	if err := c.check("fetch faq", resp); err != nil {
		return nil, err
	}
	return entries, nil
}

// Upload stores an image and returns its retrievable URL.
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader) (url string, err error) {
	defer observe("upload", time.Now(), &err)

	var out uploadResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("folder", uploadFolder).
		SetFileReader(uploadField, filename, r).
		SetResult(&out).
		Post(uploadPath)
	if err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}
	if err := c.check("upload", resp); err != nil {
		return "", err
	}
	if out.URL == "" {
		return "", errors.New("upload: response carries no url")
	}
	return out.URL, nil
}

func (c *Client) check(call string, resp *resty.Response) error {
	code := resp.StatusCode()
	if !resp.IsError() {
		return nil
	}
	c.log.Warn("request failed",
		zap.String("call", call),
		zap.Int("status", code),
		zap.String("request_id", resp.Request.Header.Get(requestIDHead)),
	)
	switch code {
	case http.StatusForbidden:
		return fmt.Errorf("%s: %w", call, ErrForbidden)
	case http.StatusUnauthorized:
		return fmt.Errorf("%s: %w", call, ErrUnauthorized)
	}
	return &StatusError{Call: call, Code: code, Body: resp.String()}
}

func observe(call string, start time.Time, err *error) {
	metrics.ObserveRequest(call, start, *err)
}
