// Package repository defines the submission store interface and errors.
package repository

import (
	"context"

	"github.com/drishtilabs/drishti/internal/domain/model"
)

// Store provides read/write access to submission state. The engines only
// read; writes exist for the ingestion side and the seeder.
type Store interface {
	// GetSubmission returns a submission by id.
	// Returns ErrNotFound when the id is unknown.
	GetSubmission(ctx context.Context, id string) (*model.Submission, error)

	// QuerySubmissions returns submissions matching the filter, ordered
	// by academic year then creation time.
	QuerySubmissions(ctx context.Context, f model.Filter) ([]*model.Submission, error)

	// Record builds the read snapshot for one submission: the submission
	// plus its document count, valid block count and block data.
	// A nil record (no error) means the id is unknown.
	Record(ctx context.Context, id string) (*model.Record, error)

	// Records builds snapshots for several ids, keyed by id. Unknown ids
	// map to nil entries rather than errors.
	Records(ctx context.Context, ids []string) (map[string]*model.Record, error)

	// PutSubmission inserts or replaces a submission.
	PutSubmission(ctx context.Context, sub *model.Submission) error

	// PutDocument registers a processed source document for a submission.
	PutDocument(ctx context.Context, submissionID, documentID string) error

	// PutBlock attaches an extracted data block to a submission.
	PutBlock(ctx context.Context, submissionID string, block model.Block) error

	// Close releases store resources.
	Close() error
}
