package remote

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"roadlog/internal/config"
)

const userAgent = "roadlog/0.1.0"

// Client talks to the GitHub Contents API for one owner/repo/branch target.
type Client struct {
	baseURL    string
	token      string
	owner      string
	repo       string
	branch     string
	httpClient *http.Client
}

// NewClient constructs a client from the github config section.
func NewClient(cfg config.GitHub) *Client {
	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		owner:      cfg.Owner,
		repo:       cfg.Repo,
		branch:     cfg.Branch,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the configured API endpoint.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// CheckIdentity verifies the token and returns the authenticated login.
func (c *Client) CheckIdentity(ctx context.Context) (string, error) {
	var payload struct {
		Login string `json:"login"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/user", nil, &payload); err != nil {
		return "", err
	}
	return payload.Login, nil
}

// CheckRepoAccess loads repository metadata and the token's permissions on it.
func (c *Client) CheckRepoAccess(ctx context.Context) (*RepoInfo, error) {
	var payload struct {
		FullName      string `json:"full_name"`
		DefaultBranch string `json:"default_branch"`
		Private       bool   `json:"private"`
		Permissions   struct {
			Push bool `json:"push"`
		} `json:"permissions"`
	}
	path := fmt.Sprintf("/repos/%s/%s", c.owner, c.repo)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return nil, err
	}
	return &RepoInfo{
		FullName:      payload.FullName,
		DefaultBranch: payload.DefaultBranch,
		Private:       payload.Private,
		CanPush:       payload.Permissions.Push,
	}, nil
}

// RateLimit reports the remaining core API quota.
func (c *Client) RateLimit(ctx context.Context) (*RateLimitStatus, error) {
	var payload struct {
		Resources struct {
			Core struct {
				Limit     int   `json:"limit"`
				Remaining int   `json:"remaining"`
				Reset     int64 `json:"reset"`
			} `json:"core"`
		} `json:"resources"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/rate_limit", nil, &payload); err != nil {
		return nil, err
	}
	return &RateLimitStatus{
		Remaining: payload.Resources.Core.Remaining,
		Limit:     payload.Resources.Core.Limit,
		Reset:     time.Unix(payload.Resources.Core.Reset, 0).UTC(),
	}, nil
}

// GetContent looks up the content identity at path on the configured branch.
// Returns ErrNotFound when the path has no content.
func (c *Client) GetContent(ctx context.Context, path string) (*ContentInfo, error) {
	var payload struct {
		Path        string `json:"path"`
		SHA         string `json:"sha"`
		Content     string `json:"content"`
		Encoding    string `json:"encoding"`
		DownloadURL string `json:"download_url"`
	}
	endpoint := c.contentsEndpoint(path) + "?ref=" + url.QueryEscape(c.branch)
	if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, &payload); err != nil {
		return nil, err
	}

	info := &ContentInfo{Path: payload.Path, SHA: payload.SHA, URL: payload.DownloadURL}
	if payload.Encoding == "base64" && payload.Content != "" {
		decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(payload.Content, "\n", ""))
		if err != nil {
			return nil, fmt.Errorf("decode content at %s: %w", path, err)
		}
		info.Content = decoded
	}
	return info, nil
}

// PutContent writes data to path with a commit message. Supplying the prior
// content SHA makes the write conditional: the API rejects it with a conflict
// when the path's current identity differs.
func (c *Client) PutContent(ctx context.Context, path, message string, data []byte, sha string) (*ContentInfo, error) {
	body := map[string]string{
		"message": message,
		"content": base64.StdEncoding.EncodeToString(data),
		"branch":  c.branch,
	}
	if sha != "" {
		body["sha"] = sha
	}

	var payload struct {
		Content struct {
			Path        string `json:"path"`
			SHA         string `json:"sha"`
			DownloadURL string `json:"download_url"`
			HTMLURL     string `json:"html_url"`
		} `json:"content"`
	}
	if err := c.doJSON(ctx, http.MethodPut, c.contentsEndpoint(path), body, &payload); err != nil {
		return nil, err
	}

	contentURL := payload.Content.DownloadURL
	if contentURL == "" {
		contentURL = payload.Content.HTMLURL
	}
	return &ContentInfo{Path: payload.Content.Path, SHA: payload.Content.SHA, URL: contentURL}, nil
}

func (c *Client) contentsEndpoint(path string) string {
	return fmt.Sprintf("/repos/%s/%s/contents/%s", c.owner, c.repo, strings.TrimPrefix(path, "/"))
}

func (c *Client) doJSON(ctx context.Context, method, endpoint string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return &TransientError{Op: method + " " + endpoint, Err: err}
	}
	defer resp.Body.Close()

	if err := classifyResponse(method+" "+endpoint, resp); err != nil {
		return err
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func classifyResponse(op string, resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%s: %w", op, ErrUnauthorized)
	case resp.StatusCode == http.StatusForbidden, resp.StatusCode == http.StatusTooManyRequests:
		if rateLimitExhausted(resp) {
			return &RateLimitError{RetryAfter: retryAfter(resp)}
		}
		return fmt.Errorf("%s: %w", op, ErrForbidden)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case resp.StatusCode == http.StatusConflict, resp.StatusCode == http.StatusUnprocessableEntity:
		return fmt.Errorf("%s: %w", op, ErrConflict)
	case resp.StatusCode >= 500:
		return &TransientError{Op: op, Status: resp.StatusCode}
	default:
		return &TransientError{Op: op, Status: resp.StatusCode}
	}
}

func rateLimitExhausted(resp *http.Response) bool {
	if resp.StatusCode == http.StatusTooManyRequests {
		return true
	}
	remaining := resp.Header.Get("X-RateLimit-Remaining")
	return remaining == "0"
}

func retryAfter(resp *http.Response) time.Duration {
	if raw := resp.Header.Get("Retry-After"); raw != "" {
		if seconds, err := strconv.Atoi(raw); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	if raw := resp.Header.Get("X-RateLimit-Reset"); raw != "" {
		if epoch, err := strconv.ParseInt(raw, 10, 64); err == nil {
			if wait := time.Until(time.Unix(epoch, 0)); wait > 0 {
				return wait
			}
		}
	}
	return 0
}
