package bitbucket

import (
	"context"
	"encoding/base64"
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

const apiBase = "https://api.bitbucket.org/2.0"

// Provider fetches pull request diffs and comments from the Bitbucket Cloud
// 2.0 REST API.
type Provider struct {
	email       string
	token       string
	httpClient  *http.Client
	RateLimiter *rate.Limiter
}

// NewProvider creates a Bitbucket provider using app-password basic auth.
func NewProvider(email, token string) *Provider {
	return &Provider{
		email:       email,
		token:       token,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		RateLimiter: rate.NewLimiter(rate.Every(1*time.Second), 5),
	}
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return "bitbucket"
}

// ParsePullRequestURL extracts workspace, repo slug, and PR id from a URL
// like https://bitbucket.org/workspace/repo/pull-requests/42.
func ParsePullRequestURL(prURL string) (string, string, int, error) {
	parsed, err := url.Parse(prURL)
	if err != nil {
		return "", "", 0, fmt.Errorf("failed to parse URL: %w", err)
	}

	parts := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(parts) < 4 || parts[2] != "pull-requests" {
		return "", "", 0, fmt.Errorf("invalid Bitbucket pull request URL: %s", prURL)
	}

	id, err := strconv.Atoi(parts[3])
	if err != nil {
		return "", "", 0, fmt.Errorf("invalid pull request id in URL %s: %w", prURL, err)
	}

	return parts[0], parts[1], id, nil
}

// FetchDiff returns the raw unified diff for the pull request.
func (p *Provider) FetchDiff(ctx context.Context, prURL string) (string, error) {
	workspace, repoSlug, id, err := ParsePullRequestURL(prURL)
	if err != nil {
		return "", err
	}

	apiURL := fmt.Sprintf("%s/repositories/%s/%s/pullrequests/%d/diff", apiBase, workspace, repoSlug, id)
	body, err := p.get(ctx, apiURL)
	if err != nil {
		return "", fmt.Errorf("Bitbucket PR diff failed: %w", err)
	}

	return string(body), nil
}

// bitbucketComment mirrors the comment object on the pull request comments
// endpoint.
type bitbucketComment struct {
	ID      int `json:"id"`
	Content struct {
		Raw string `json:"raw"`
	} `json:"content"`
	User *struct {
		DisplayName string `json:"display_name"`
		Nickname    string `json:"nickname"`
	} `json:"user"`
	Parent *struct {
		ID int `json:"id"`
	} `json:"parent"`
	Inline *struct {
		Path string `json:"path"`
		From *int   `json:"from"`
		To   *int   `json:"to"`
	} `json:"inline"`
	Resolution *struct {
		Type string `json:"type"`
	} `json:"resolution"`
	Deleted bool `json:"deleted"`
}

type commentsPage struct {
	Values []bitbucketComment `json:"values"`
	Next   string             `json:"next"`
}

// FetchComments returns the pull request's comments, following pagination.
// Deleted comments are skipped.
func (p *Provider) FetchComments(ctx context.Context, prURL string) ([]models.Comment, error) {
	workspace, repoSlug, id, err := ParsePullRequestURL(prURL)
	if err != nil {
		return nil, err
	}

	pageURL := fmt.Sprintf("%s/repositories/%s/%s/pullrequests/%d/comments?pagelen=100", apiBase, workspace, repoSlug, id)

	var comments []models.Comment
	for pageURL != "" {
		body, err := p.get(ctx, pageURL)
		if err != nil {
			return nil, fmt.Errorf("Bitbucket PR comments failed: %w", err)
		}

		var page commentsPage
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("failed to decode comments response: %w", err)
		}

		for _, bc := range page.Values {
			if bc.Deleted {
				continue
			}
			comments = append(comments, convertComment(bc))
		}

		pageURL = page.Next
	}

	log.Debug().Int("count", len(comments)).Str("pr", prURL).Msg("Fetched Bitbucket comments")
	return comments, nil
}

// convertComment maps a Bitbucket comment to the unified model. Inline
// comments anchor to the addition side when "to" is set, otherwise to the
// deletion side via "from".
func convertComment(bc bitbucketComment) models.Comment {
	c := models.Comment{
		ID:       strconv.Itoa(bc.ID),
		Body:     bc.Content.Raw,
		Resolved: bc.Resolution != nil,
	}
	if bc.User != nil {
		c.Author = bc.User.DisplayName
		if c.Author == "" {
			c.Author = bc.User.Nickname
		}
	}
	if bc.Parent != nil {
		c.ParentID = strconv.Itoa(bc.Parent.ID)
	}

	if bc.Inline == nil {
		return c
	}

	loc := &models.InlineLocation{Path: bc.Inline.Path}
	switch {
	case bc.Inline.To != nil && *bc.Inline.To > 0:
		loc.Line = *bc.Inline.To
		loc.Side = models.SideAddition
	case bc.Inline.From != nil && *bc.Inline.From > 0:
		loc.Line = *bc.Inline.From
		loc.Side = models.SideDeletion
	default:
		// Inline block present but no usable line; treat as general.
		return c
	}
	c.Inline = loc

	return c
}

func (p *Provider) get(ctx context.Context, apiURL string) ([]byte, error) {
	var body []byte
	err := retry.Do(ctx, retry.DefaultConfig(), log.Logger, func() error {
		if err := p.RateLimiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, "GET", apiURL, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		auth := base64.StdEncoding.EncodeToString([]byte(p.email + ":" + p.token))
		req.Header.Set("Authorization", "Basic "+auth)
		req.Header.Set("Accept", "application/json")

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
