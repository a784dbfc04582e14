package exam

import "context"

type ListOpts struct {
	Offset int
	Limit  int
}

// Store is the persistence boundary: the answer key store plus the per-test
// response relations.
type Store interface {
	CreateTest(ctx context.Context, t Test) (Test, error)
	GetTest(ctx context.Context, testID string) (Test, error)
	ListTests(ctx context.Context, opts ListOpts) ([]Test, error)
	UpdateTest(ctx context.Context, testID string, p TestPatch) (Test, error)
	// DeleteTest removes the test and drops its relation atomically.
	DeleteTest(ctx context.Context, testID string) error

	RelationExists(ctx context.Context, testID string) (bool, error)
	SubmitterExists(ctx context.Context, testID, telegramID string) (bool, error)
	// InsertResponse creates the relation if needed and stores r in one transaction.
	InsertResponse(ctx context.Context, r Response) (Response, error)
	ListResponses(ctx context.Context, testID string, opts ListOpts) ([]Response, error)
	// ListRanked returns every response by score descending, ties in submission order.
	ListRanked(ctx context.Context, testID string) ([]Response, error)
	ResponseStats(ctx context.Context, testID string) (Stats, error)
}
