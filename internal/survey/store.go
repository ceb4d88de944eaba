package survey

import "context"

// Store persists and retrieves surveys.
type Store interface {
	Create(ctx context.Context, s *Survey) error
	// Get returns nil, nil when the survey does not exist.
	Get(ctx context.Context, id string) (*Survey, error)
	// List returns a page of surveys ordered by created_at DESC, plus the total count.
	List(ctx context.Context, limit, offset int) ([]*Survey, int, error)
	Delete(ctx context.Context, id string) error
}
