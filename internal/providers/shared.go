package providers

import (
	"context"
	"fmt"

	"github.com/reviewdeck/pkg/models"
)

// Provider represents a git hosting provider (GitHub, Bitbucket) the review
// client can pull a pull request's diff and comments from. Implementations
// treat both as opaque snapshots; nothing here mutates host state.
type Provider interface {
	Name() string
	// FetchDiff returns the pull request's raw unified diff text.
	FetchDiff(ctx context.Context, prURL string) (string, error)
	// FetchComments returns the pull request's comments as a flat list,
	// mapped into the unified comment model.
	FetchComments(ctx context.Context, prURL string) ([]models.Comment, error)
}

// ReviewInput bundles everything the derive pipeline needs for one pull
// request.
type ReviewInput struct {
	DiffText string
	Comments []models.Comment
}

// FetchReviewInput pulls both halves of the pipeline input from a provider.
func FetchReviewInput(ctx context.Context, p Provider, prURL string) (*ReviewInput, error) {
	diffText, err := p.FetchDiff(ctx, prURL)
	if err != nil {
		return nil, fmt.Errorf("fetching diff from %s: %w", p.Name(), err)
	}
	comments, err := p.FetchComments(ctx, prURL)
	if err != nil {
		return nil, fmt.Errorf("fetching comments from %s: %w", p.Name(), err)
	}
	return &ReviewInput{DiffText: diffText, Comments: comments}, nil
}
