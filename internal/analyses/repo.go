package analyses

import "context"

// Repo defines persistence operations for analyses. Every write touches
// UpdatedAt; CreatedAt is set once by Create.
type Repo interface {
	Create(ctx context.Context, analysis Analysis) (Analysis, error)
	GetByID(ctx context.Context, id int64) (Analysis, error)
	List(ctx context.Context, limit, offset int) ([]Analysis, error)
	Delete(ctx context.Context, id int64) error

	// MarkPending resets a record for a re-run, clearing outputs and error.
	MarkPending(ctx context.Context, id int64) error
	// MarkProcessing sets processing and clears outputs and error in one write.
	MarkProcessing(ctx context.Context, id int64) error
	// SaveResult writes the outputs, sets completed and clears the error.
	SaveResult(ctx context.Context, id int64, res Result) error
	// MarkFailed sets failed with msg and clears outputs.
	MarkFailed(ctx context.Context, id int64, msg string) error
}
