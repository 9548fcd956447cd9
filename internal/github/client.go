// Package github is the thin hosting-provider collaborator: repository
// metadata lookup, issue reports for failed entries, and the consolidated
// review request. Every call needs a credential; callers degrade to logged
// no-ops when none is configured.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/forkhold/forkhold/pkg/errors"
)

// DefaultBaseURL is the GitHub REST API root.
const DefaultBaseURL = "https://api.github.com"

// defaultHTTPTimeout bounds every API call so a stuck request converts to
// a per-entry failure instead of stalling the batch.
const defaultHTTPTimeout = 30 * time.Second

// Client talks to the GitHub REST API with a bearer credential.
type Client struct {
	http    *http.Client
	baseURL string
	token   string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API root, mainly for tests.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient swaps the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// NewClient creates a client using the given token. An empty token yields
// an unauthenticated client; Authenticated reports which one you have.
func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		http:    &http.Client{Timeout: defaultHTTPTimeout},
		baseURL: DefaultBaseURL,
		token:   token,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Authenticated reports whether the client carries a credential.
func (c *Client) Authenticated() bool {
	return c.token != ""
}

// Repository is the subset of repository metadata forkhold consumes.
type Repository struct {
	FullName      string       `json:"full_name"`
	Description   string       `json:"description"`
	DefaultBranch string       `json:"default_branch"`
	HTMLURL       string       `json:"html_url"`
	License       *RepoLicense `json:"license"`
}

// RepoLicense is GitHub's license detection result for a repository.
type RepoLicense struct {
	Key    string `json:"key"`
	Name   string `json:"name"`
	SPDXID string `json:"spdx_id"`
	URL    string `json:"url"`
}

// LicenseName returns the best human-readable license name.
func (l *RepoLicense) LicenseName() string {
	if l == nil {
		return ""
	}
	if l.Name != "" {
		return l.Name
	}
	return l.SPDXID
}

// GetRepository fetches metadata for an owner/repo identity.
func (c *Client) GetRepository(ctx context.Context, fullName string) (*Repository, error) {
	var repo Repository
	if err := c.do(ctx, http.MethodGet, "/repos/"+fullName, nil, &repo); err != nil {
		return nil, err
	}
	return &repo, nil
}

// CreateIssue opens an issue on repo reporting a failed entry.
func (c *Client) CreateIssue(ctx context.Context, repo, title, body string) error {
	payload := map[string]string{"title": title, "body": body}
	return c.do(ctx, http.MethodPost, "/repos/"+repo+"/issues", payload, nil)
}

// NewPullRequest describes a review request to open.
type NewPullRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Head  string `json:"head"`
	Base  string `json:"base"`
}

// CreatePullRequest opens a pull request on repo.
func (c *Client) CreatePullRequest(ctx context.Context, repo string, pr NewPullRequest) error {
	return c.do(ctx, http.MethodPost, "/repos/"+repo+"/pulls", pr, nil)
}

// do performs one API round trip, encoding payload and decoding into out
// when non-nil. Non-2xx responses become APIErrors carrying the body.
func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return errors.WrapParse("json", path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.NewAPIError(path, 0, err.Error())
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "forkhold")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.NewAPIError(path, 0, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return errors.NewAPIError(path, resp.StatusCode, string(data))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return errors.WrapParse("json", path, err)
		}
	}
	return nil
}
