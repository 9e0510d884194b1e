package github

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"sync"
	"time"

	gh "github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"

	"github.com/custodia-labs/docmodel/internal/core/ports/driven"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 30 * time.Second

// Client wraps the go-github client with the calls the provider needs.
type Client struct {
	mu            sync.Mutex
	gh            *gh.Client
	tokenProvider driven.TokenProvider
	rateLimiter   *RateLimiter
}

// NewClient creates a client that authenticates with tokens from tokenProvider.
func NewClient(tokenProvider driven.TokenProvider) *Client {
	return &Client{
		tokenProvider: tokenProvider,
		rateLimiter:   NewRateLimiter(),
	}
}

// NewClientWithHTTPClient creates a client on a preconfigured http.Client.
func NewClientWithHTTPClient(httpClient *http.Client) *Client {
	return &Client{
		gh:          gh.NewClient(httpClient),
		rateLimiter: NewRateLimiter(),
	}
}

// ensureClient builds the go-github client on first use so the token is
// fetched only when needed. An empty token means anonymous access.
func (c *Client) ensureClient(ctx context.Context) (*gh.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gh != nil {
		return c.gh, nil
	}

	token, err := c.tokenProvider.GetToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("get token: %w", err)
	}

	httpClient := &http.Client{Timeout: DefaultTimeout}
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(context.Background(), ts)
		httpClient.Timeout = DefaultTimeout
	}
	c.gh = gh.NewClient(httpClient)
	return c.gh, nil
}

// File is a file's raw bytes and blob SHA.
type File struct {
	Content []byte
	SHA     string
}

// GetFile fetches a file at ref. Files over 1MB come back without inline
// content and are downloaded separately.
func (c *Client) GetFile(ctx context.Context, owner, repo, path, ref string) (*File, error) {
	client, err := c.ensureClient(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	opts := &gh.RepositoryContentGetOptions{Ref: ref}
	content, _, resp, err := client.Repositories.GetContents(ctx, owner, repo, path, opts)
	c.updateRateLimitFromResponse(resp)
	if err != nil {
		return nil, c.wrapError(err, "get contents")
	}
	if content == nil {
		return nil, fmt.Errorf("github: %s is a directory, not a file", path)
	}

	if content.GetEncoding() == "none" {
		data, err := c.download(ctx, client, owner, repo, path, ref)
		if err != nil {
			return nil, err
		}
		return &File{Content: data, SHA: content.GetSHA()}, nil
	}

	decoded, err := content.GetContent()
	if err != nil {
		return nil, fmt.Errorf("decode content: %w", err)
	}
	return &File{Content: []byte(decoded), SHA: content.GetSHA()}, nil
}

// FileSHA returns the blob SHA of the file at p without downloading it, by
// listing its parent directory.
func (c *Client) FileSHA(ctx context.Context, owner, repo, p, ref string) (string, error) {
	client, err := c.ensureClient(ctx)
	if err != nil {
		return "", err
	}
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	dir := path.Dir(p)
	if dir == "." {
		dir = ""
	}
	opts := &gh.RepositoryContentGetOptions{Ref: ref}
	_, entries, resp, err := client.Repositories.GetContents(ctx, owner, repo, dir, opts)
	c.updateRateLimitFromResponse(resp)
	if err != nil {
		return "", c.wrapError(err, "list contents")
	}
	for _, e := range entries {
		if e.GetPath() == p && e.GetType() == "file" {
			return e.GetSHA(), nil
		}
	}
	return "", &APIError{StatusCode: http.StatusNotFound, Message: "no file " + p + " in listing"}
}

func (c *Client) download(ctx context.Context, client *gh.Client, owner, repo, path, ref string) ([]byte, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	opts := &gh.RepositoryContentGetOptions{Ref: ref}
	rc, resp, err := client.Repositories.DownloadContents(ctx, owner, repo, path, opts)
	c.updateRateLimitFromResponse(resp)
	if err != nil {
		return nil, c.wrapError(err, "download contents")
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("download contents: %w", err)
	}
	return data, nil
}

// PutFile commits content to path on branch. An empty sha creates the
// file; otherwise GitHub rejects the write unless sha is the current blob.
// It returns the new blob SHA.
func (c *Client) PutFile(
	ctx context.Context, owner, repo, path, branch, message string, content []byte, sha string,
) (string, error) {
	client, err := c.ensureClient(ctx)
	if err != nil {
		return "", err
	}
	if err := c.rateLimiter.WaitFor(ctx, OpSave); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	opts := &gh.RepositoryContentFileOptions{
		Message: gh.Ptr(message),
		Content: content,
	}
	if branch != "" {
		opts.Branch = gh.Ptr(branch)
	}

	var (
		result *gh.RepositoryContentResponse
		resp   *gh.Response
	)
	if sha == "" {
		result, resp, err = client.Repositories.CreateFile(ctx, owner, repo, path, opts)
	} else {
		opts.SHA = gh.Ptr(sha)
		result, resp, err = client.Repositories.UpdateFile(ctx, owner, repo, path, opts)
	}
	c.updateRateLimitFromResponse(resp)
	if err != nil {
		return "", c.wrapError(err, "put contents")
	}
	if result == nil || result.Content == nil {
		return "", nil
	}
	return result.Content.GetSHA(), nil
}

// CanPush reports whether the authenticated user may write to the repository.
func (c *Client) CanPush(ctx context.Context, owner, repo string) (bool, error) {
	client, err := c.ensureClient(ctx)
	if err != nil {
		return false, err
	}
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return false, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := client.NewRequest(http.MethodGet, fmt.Sprintf("repos/%v/%v", owner, repo), nil)
	if err != nil {
		return false, fmt.Errorf("get repo: %w", err)
	}
	var body struct {
		Permissions struct {
			Push bool `json:"push"`
		} `json:"permissions"`
	}
	resp, err := client.Do(ctx, req, &body)
	c.updateRateLimitFromResponse(resp)
	if err != nil {
		return false, c.wrapError(err, "get repo")
	}
	return body.Permissions.Push, nil
}

// RateLimiter returns the rate limiter for external access.
func (c *Client) RateLimiter() *RateLimiter {
	return c.rateLimiter
}

// updateRateLimitFromResponse updates the rate limiter from GitHub response headers.
func (c *Client) updateRateLimitFromResponse(resp *gh.Response) {
	if resp == nil || resp.Response == nil {
		return
	}
	c.rateLimiter.UpdateFromResponse(resp.Response)
}

// wrapError converts go-github errors to our error types.
func (c *Client) wrapError(err error, operation string) error {
	var rateLimitErr *gh.RateLimitError
	if errors.As(err, &rateLimitErr) {
		remaining, limit, reset := c.rateLimiter.Quota()
		return &RateLimitError{ResetAt: reset, Remaining: remaining, Limit: limit}
	}

	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		apiErr := &APIError{
			StatusCode: ghErr.Response.StatusCode,
			Message:    ghErr.Message,
		}
		if ghErr.Response.Request != nil && ghErr.Response.Request.URL != nil {
			apiErr.URL = ghErr.Response.Request.URL.String()
		}
		return apiErr
	}

	return fmt.Errorf("%s: %w", operation, err)
}
