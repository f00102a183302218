package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/reviewdeck/internal/retry"
	"github.com/reviewdeck/pkg/models"
)

const apiBase = "https://api.github.com"

// Provider fetches pull request diffs and comments from the GitHub REST API.
type Provider struct {
	token       string
	httpClient  *http.Client
	RateLimiter *rate.Limiter
}

// NewProvider creates a GitHub provider authenticated with a personal access
// token. An empty token works for public repositories at a reduced rate limit.
func NewProvider(token string) *Provider {
	return &Provider{
		token:      token,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		// GitHub's secondary rate limits punish bursts hard.
		RateLimiter: rate.NewLimiter(rate.Every(1*time.Second), 5),
	}
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return "github"
}

// ParsePullRequestURL extracts owner, repo, and PR number from a URL like
// https://github.com/owner/repo/pull/123.
func ParsePullRequestURL(prURL string) (string, string, int, error) {
	parsed, err := url.Parse(prURL)
	if err != nil {
		return "", "", 0, fmt.Errorf("failed to parse URL: %w", err)
	}

	parts := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(parts) < 4 || parts[2] != "pull" {
		return "", "", 0, fmt.Errorf("invalid GitHub pull request URL: %s", prURL)
	}

	number, err := strconv.Atoi(parts[3])
	if err != nil {
		return "", "", 0, fmt.Errorf("invalid pull request number in URL %s: %w", prURL, err)
	}

	return parts[0], parts[1], number, nil
}

// FetchDiff returns the raw unified diff for the pull request, using GitHub's
// diff media type on the pulls endpoint.
func (p *Provider) FetchDiff(ctx context.Context, prURL string) (string, error) {
	owner, repo, number, err := ParsePullRequestURL(prURL)
	if err != nil {
		return "", err
	}

	apiURL := fmt.Sprintf("%s/repos/%s/%s/pulls/%d", apiBase, owner, repo, number)
	body, err := p.get(ctx, apiURL, "application/vnd.github.v3.diff")
	if err != nil {
		return "", fmt.Errorf("GitHub PR diff failed: %w", err)
	}

	return string(body), nil
}

// githubComment is the wire shape shared by review comments (inline, on the
// pulls endpoint) and issue comments (general, on the issues endpoint).
type githubComment struct {
	ID   int64 `json:"id"`
	User struct {
		Login string `json:"login"`
	} `json:"user"`
	Body         string `json:"body"`
	Path         string `json:"path,omitempty"`
	Line         *int   `json:"line,omitempty"`
	OriginalLine *int   `json:"original_line,omitempty"`
	Side         string `json:"side,omitempty"`
	InReplyToID  int64  `json:"in_reply_to_id,omitempty"`
}

// FetchComments returns the pull request's inline review comments followed by
// its general discussion comments, converted to the unified model.
func (p *Provider) FetchComments(ctx context.Context, prURL string) ([]models.Comment, error) {
	owner, repo, number, err := ParsePullRequestURL(prURL)
	if err != nil {
		return nil, err
	}

	reviewURL := fmt.Sprintf("%s/repos/%s/%s/pulls/%d/comments?per_page=100", apiBase, owner, repo, number)
	issueURL := fmt.Sprintf("%s/repos/%s/%s/issues/%d/comments?per_page=100", apiBase, owner, repo, number)

	var comments []models.Comment
	for _, u := range []string{reviewURL, issueURL} {
		body, err := p.get(ctx, u, "application/vnd.github.v3+json")
		if err != nil {
			return nil, fmt.Errorf("GitHub PR comments failed: %w", err)
		}

		var raw []githubComment
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, fmt.Errorf("failed to decode comments response: %w", err)
		}

		for _, gc := range raw {
			comments = append(comments, convertComment(gc))
		}
	}

	log.Debug().Int("count", len(comments)).Str("pr", prURL).Msg("Fetched GitHub comments")
	return comments, nil
}

// convertComment maps a GitHub comment to the unified model. Review comments
// carry a path and line; issue comments have neither and become general.
func convertComment(gc githubComment) models.Comment {
	c := models.Comment{
		ID:     strconv.FormatInt(gc.ID, 10),
		Author: gc.User.Login,
		Body:   gc.Body,
	}
	if gc.InReplyToID != 0 {
		c.ParentID = strconv.FormatInt(gc.InReplyToID, 10)
	}

	if gc.Path == "" {
		return c
	}

	line := 0
	if gc.Line != nil {
		line = *gc.Line
	} else if gc.OriginalLine != nil {
		line = *gc.OriginalLine
	}

	side := models.SideAddition
	if gc.Side == "LEFT" {
		side = models.SideDeletion
	}

	c.Inline = &models.InlineLocation{Path: gc.Path, Line: line, Side: side}
	return c
}

func (p *Provider) get(ctx context.Context, apiURL, accept string) ([]byte, error) {
	var body []byte
	err := retry.Do(ctx, retry.DefaultConfig(), log.Logger, func() error {
		if err := p.RateLimiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, "GET", apiURL, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		if p.token != "" {
			req.Header.Set("Authorization", "token "+p.token)
		}
		req.Header.Set("Accept", accept)

		resp, err := p.httpClient.Do(req)
		if err != nil {
			return retry.Transient(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			raw, _ := io.ReadAll(resp.Body)
			err := fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(raw)))
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return retry.Transient(err)
			}
			return err
		}

		body, err = io.ReadAll(resp.Body)
		return err
	})
	return body, err
}
