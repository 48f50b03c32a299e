package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrUnavailable reports that no daemon API is configured.
var ErrUnavailable = errors.New("daemon API unavailable")

// Client talks to a running daemon over its HTTP API.
type Client struct {
	base  *url.URL
	http  *http.Client
	token string
}

// Submission is an upload sent to POST /api/jobs.
type Submission struct {
	FileName string
	Data     []byte
	To       []string
	From     string
	Tone     string
	User     string
	Terms    []string
}

// NewClient returns a client for the daemon bound at bind. It returns nil
// when bind is empty.
func NewClient(bind, token string) (*Client, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil, nil
	}
	if !strings.Contains(bind, "://") {
		bind = "http://" + bind
	}
	base, err := url.Parse(bind)
	if err != nil {
		return nil, err
	}
	base.Path = ""
	base.RawQuery = ""
	base.Fragment = ""

	return &Client{
		base:  base,
		http:  &http.Client{Timeout: 60 * time.Second},
		token: strings.TrimSpace(token),
	}, nil
}

// Status fetches daemon status.
func (c *Client) Status(ctx context.Context) (DaemonStatus, error) {
	var out DaemonStatus
	err := c.getJSON(ctx, "/api/status", nil, &out)
	return out, err
}

// ListJobs fetches jobs, optionally filtered by status.
func (c *Client) ListJobs(ctx context.Context, statuses ...string) ([]Job, error) {
	values := url.Values{}
	for _, status := range statuses {
		if status = strings.TrimSpace(status); status != "" {
			values.Add("status", status)
		}
	}
	var out JobListResponse
	if err := c.getJSON(ctx, "/api/jobs", values, &out); err != nil {
		return nil, err
	}
	return out.Jobs, nil
}

// GetJob fetches one job with its errors and artifacts.
func (c *Client) GetJob(ctx context.Context, id string) (JobResponse, error) {
	var out JobResponse
	err := c.getJSON(ctx, "/api/jobs/"+url.PathEscape(id), nil, &out)
	return out, err
}

// Submit uploads a catalog and returns the queued job.
func (c *Client) Submit(ctx context.Context, sub Submission) (JobResponse, error) {
	if c == nil {
		return JobResponse{}, ErrUnavailable
	}
	values := url.Values{}
	values.Set("filename", sub.FileName)
	values.Set("to", strings.Join(sub.To, ","))
	if sub.From != "" {
		values.Set("from", sub.From)
	}
	if sub.Tone != "" {
		values.Set("tone", sub.Tone)
	}
	if sub.User != "" {
		values.Set("user", sub.User)
	}
	for _, term := range sub.Terms {
		values.Add("term", term)
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/jobs", values, bytes.NewReader(sub.Data))
	if err != nil {
		return JobResponse{}, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	var out JobResponse
	err = c.do(req, &out)
	return out, err
}

// DownloadArtifact copies an artifact's bytes into w.
func (c *Client) DownloadArtifact(ctx context.Context, jobID, name string, w io.Writer) error {
	if c == nil {
		return ErrUnavailable
	}
	req, err := c.newRequest(ctx, http.MethodGet, ArtifactPath(jobID, name), nil, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	_, err = io.Copy(w, resp.Body)
	return err
}

func (c *Client) getJSON(ctx context.Context, path string, values url.Values, out any) error {
	if c == nil {
		return ErrUnavailable
	}
	req, err := c.newRequest(ctx, http.MethodGet, path, values, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, values url.Values, body io.Reader) (*http.Request, error) {
	endpoint := c.base.ResolveReference(&url.URL{Path: path, RawQuery: values.Encode()})
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// StatusError is a non-2xx API response.
type StatusError struct {
	StatusCode int
	Message    string
	Kind       string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("api returned status %d: %s", e.StatusCode, e.Message)
}

func decodeError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var payload ErrorResponse
	if err := json.Unmarshal(body, &payload); err != nil || payload.Error == "" {
		payload.Error = strings.TrimSpace(string(body))
	}
	return &StatusError{StatusCode: resp.StatusCode, Message: payload.Error, Kind: payload.Kind}
}

// IsUnavailable reports whether err means the daemon could not be reached.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}
	var opErr *net.OpError
	return errors.Is(err, ErrUnavailable) || errors.As(err, &opErr)
}
