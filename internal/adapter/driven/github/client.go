// Package github implements the FeedbackChannel port by filing GitHub issues.
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"

	"github.com/coldrm/coldrm/internal/domain/model"
	"github.com/coldrm/coldrm/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.FeedbackChannel = (*Client)(nil)

// Label applied to every issue filed from user feedback.
const (
	feedbackLabel      = "feedback"
	feedbackLabelColor = "0e8a16"
)

// Client implements the driven.FeedbackChannel port using the go-github library.
type Client struct {
	gh    *gh.Client
	owner string
	repo  string
}

// NewClient creates a new GitHub API client with the following transport stack:
//  1. httpcache (ETag-based conditional request caching)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  3. go-github (GitHub REST API client with PAT auth)
//
// repoFullName is the "owner/name" repository issues are filed in.
func NewClient(token, repoFullName string) (*Client, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)
	client := gh.NewClient(rateLimitClient).WithAuthToken(token)

	return &Client{gh: client, owner: owner, repo: repo}, nil
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base URL.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL, repoFullName string) (*Client, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	client := gh.NewClient(httpClient)

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	client.BaseURL = u

	return &Client{gh: client, owner: owner, repo: repo}, nil
}

// Submit files the feedback as an issue and returns the issue's HTML URL.
// A failed label check is logged and the issue is filed anyway.
func (c *Client) Submit(ctx context.Context, f model.Feedback) (string, error) {
	if err := c.ensureLabel(ctx); err != nil {
		slog.Warn("feedback label check failed", "repo", c.owner+"/"+c.repo, "error", err)
	}

	req := &gh.IssueRequest{
		Title:  gh.Ptr(issueTitle(f)),
		Body:   gh.Ptr(issueBody(f)),
		Labels: &[]string{feedbackLabel},
	}

	issue, resp, err := c.gh.Issues.Create(ctx, c.owner, c.repo, req)
	if err != nil {
		return "", fmt.Errorf("creating feedback issue in %s/%s: %w", c.owner, c.repo, err)
	}

	logRateLimit(resp, c.owner+"/"+c.repo+"/issues")
	return issue.GetHTMLURL(), nil
}

// ensureLabel creates the feedback label when the repository lacks it. The
// lookup is a GET, so behind the cache transport repeat checks revalidate
// with If-None-Match and a 304 does not count against the rate limit.
func (c *Client) ensureLabel(ctx context.Context) error {
	_, resp, err := c.gh.Issues.GetLabel(ctx, c.owner, c.repo, feedbackLabel)
	logRateLimit(resp, c.owner+"/"+c.repo+"/labels")
	if err == nil {
		return nil
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("looking up %q label in %s/%s: %w", feedbackLabel, c.owner, c.repo, err)
	}

	_, resp, err = c.gh.Issues.CreateLabel(ctx, c.owner, c.repo, &gh.Label{
		Name:        gh.Ptr(feedbackLabel),
		Color:       gh.Ptr(feedbackLabelColor),
		Description: gh.Ptr("Submitted through the in-app feedback form"),
	})
	if err != nil {
		// 422: created concurrently by another submission.
		if resp != nil && resp.StatusCode == http.StatusUnprocessableEntity {
			return nil
		}
		return fmt.Errorf("creating %q label in %s/%s: %w", feedbackLabel, c.owner, c.repo, err)
	}

	slog.Info("created feedback label", "repo", c.owner+"/"+c.repo)
	return nil
}

func issueTitle(f model.Feedback) string {
	summary := strings.TrimSpace(strings.SplitN(f.Text, "\n", 2)[0])
	if r := []rune(summary); len(r) > 60 {
		summary = string(r[:60]) + "..."
	}
	return fmt.Sprintf("Feedback from %s: %s", f.UserName, summary)
}

// issueBody keeps the user's text as-is so markdown renders on GitHub.
func issueBody(f model.Feedback) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**From:** %s <%s>\n", f.UserName, f.UserEmail)
	fmt.Fprintf(&b, "**Company:** %s\n", f.CompanyName)
	fmt.Fprintf(&b, "**Submitted:** %s\n\n---\n\n", f.CreatedAt.UTC().Format(time.RFC3339))
	b.WriteString(f.Text)
	b.WriteString("\n")
	return b.String()
}

// logRateLimit logs the GitHub API rate limit status after each call.
func logRateLimit(resp *gh.Response, endpoint string) {
	if resp == nil {
		return
	}

	slog.Debug("github api call",
		"endpoint", endpoint,
		"rate_remaining", resp.Rate.Remaining,
		"rate_limit", resp.Rate.Limit,
	)

	if resp.Rate.Remaining < 100 {
		slog.Warn("github rate limit low",
			"remaining", resp.Rate.Remaining,
			"reset_in", time.Until(resp.Rate.Reset.Time).Round(time.Second),
		)
	}
}

// splitRepo splits a "owner/repo" string into its two components.
func splitRepo(fullName string) (string, string, error) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repo name %q: expected owner/repo", fullName)
	}
	return parts[0], parts[1], nil
}
