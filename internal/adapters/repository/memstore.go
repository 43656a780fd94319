package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/drishtilabs/drishti/internal/domain/model"
)

// MemStore implements Store with mutex-guarded maps. It backs tests and
// runs without a configured sqlite path.
type MemStore struct {
	mu          sync.RWMutex
	submissions map[string]*model.Submission
	documents   map[string][]string       // submission id -> document ids
	blocks      map[string][]model.Block  // submission id -> blocks
	closed      bool
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		submissions: make(map[string]*model.Submission),
		documents:   make(map[string][]string),
		blocks:      make(map[string][]model.Block),
	}
}

// GetSubmission returns a copy of the stored submission.
func (s *MemStore) GetSubmission(_ context.Context, id string) (*model.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	sub, ok := s.submissions[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *sub
	return &cp, nil
}

// QuerySubmissions returns copies of submissions matching the filter,
// ordered by academic year then creation time.
func (s *MemStore) QuerySubmissions(_ context.Context, f model.Filter) ([]*model.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	var out []*model.Submission
	for _, sub := range s.submissions {
		if !matches(sub, f) {
			continue
		}
		cp := *sub
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AcademicYear != out[j].AcademicYear {
			return out[i].AcademicYear < out[j].AcademicYear
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Record builds the read snapshot for one submission; nil when unknown.
func (s *MemStore) Record(_ context.Context, id string) (*model.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	sub, ok := s.submissions[id]
	if !ok {
		return nil, nil
	}
	cp := *sub
	rec := &model.Record{Submission: &cp, DocumentCount: len(s.documents[id])}
	for _, b := range s.blocks[id] {
		rec.Blocks = append(rec.Blocks, b)
		if !b.Invalid {
			rec.ValidBlockCount++
		}
	}
	return rec, nil
}

// Records builds snapshots for several ids. Unknown ids map to nil.
func (s *MemStore) Records(ctx context.Context, ids []string) (map[string]*model.Record, error) {
	out := make(map[string]*model.Record, len(ids))
	for _, id := range ids {
		rec, err := s.Record(ctx, id)
		if err != nil {
			return nil, err
		}
		out[id] = rec
	}
	return out, nil
}

// PutSubmission inserts or replaces a submission.
func (s *MemStore) PutSubmission(_ context.Context, sub *model.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	cp := *sub
	s.submissions[sub.ID] = &cp
	return nil
}

// PutDocument registers a processed document.
func (s *MemStore) PutDocument(_ context.Context, submissionID, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	for _, existing := range s.documents[submissionID] {
		if existing == documentID {
			return nil
		}
	}
	s.documents[submissionID] = append(s.documents[submissionID], documentID)
	return nil
}

// PutBlock attaches an extracted block, replacing one with the same id.
func (s *MemStore) PutBlock(_ context.Context, submissionID string, block model.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	blocks := s.blocks[submissionID]
	for i, existing := range blocks {
		if existing.ID == block.ID {
			blocks[i] = block
			return nil
		}
	}
	s.blocks[submissionID] = append(blocks, block)
	return nil
}

// Close marks the store closed; further calls fail with ErrClosed.
func (s *MemStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func matches(sub *model.Submission, f model.Filter) bool {
	switch {
	case f.InstitutionName != "" && sub.InstitutionName != f.InstitutionName:
		return false
	case f.DepartmentName != "" && sub.DepartmentName != f.DepartmentName:
		return false
	case f.Status != "" && sub.Status != f.Status:
		return false
	case f.Mode != "" && sub.Mode != f.Mode:
		return false
	case f.AcademicYear != "" && sub.AcademicYear != f.AcademicYear:
		return false
	case f.ExcludeID != "" && sub.ID == f.ExcludeID:
		return false
	case f.OnlyValid && sub.Invalid:
		return false
	}
	return true
}
