package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"trustcore/internal/document/models"
	id "trustcore/pkg/domain"
	"trustcore/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded document store.
type InMemory struct {
	mu   sync.RWMutex
	docs map[id.DocumentID]*models.Document
}

func NewInMemory() *InMemory {
	return &InMemory{docs: make(map[id.DocumentID]*models.Document)}
}

// Create inserts a document. A second pending document for the same owner
// and type returns sentinel.ErrAlreadyUsed.
func (s *InMemory) Create(_ context.Context, d *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.docs[d.ID]; exists {
		return fmt.Errorf("document %s: %w", d.ID, sentinel.ErrAlreadyUsed)
	}
	if d.Status == models.StatusPending {
		if pending := s.findPendingLocked(d.OwnerID, d.Type); pending != nil {
			return fmt.Errorf("pending %s document: %w", d.Type, sentinel.ErrAlreadyUsed)
		}
	}
	s.docs[d.ID] = d.Clone()
	return nil
}

func (s *InMemory) FindByID(_ context.Context, docID id.DocumentID) (*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.docs[docID]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", docID, sentinel.ErrNotFound)
	}
	return d.Clone(), nil
}

// FindPending returns the pending document of the given type, if any.
func (s *InMemory) FindPending(_ context.Context, owner id.UserID, docType id.DocumentType) (*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d := s.findPendingLocked(owner, docType)
	if d == nil {
		return nil, fmt.Errorf("pending %s document: %w", docType, sentinel.ErrNotFound)
	}
	return d.Clone(), nil
}

func (s *InMemory) findPendingLocked(owner id.UserID, docType id.DocumentType) *models.Document {
	for _, d := range s.docs {
		if d.OwnerID == owner && d.Type == docType && d.Status == models.StatusPending {
			return d
		}
	}
	return nil
}

// ListByOwner returns every document of the owner, oldest first.
func (s *InMemory) ListByOwner(_ context.Context, owner id.UserID) ([]*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Document, 0)
	for _, d := range s.docs {
		if d.OwnerID == owner {
			out = append(out, d.Clone())
		}
	}
	sortBySubmission(out)
	return out, nil
}

// ListApprovedTypes returns the distinct document types the owner has
// approved.
func (s *InMemory) ListApprovedTypes(_ context.Context, owner id.UserID) ([]id.DocumentType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[id.DocumentType]struct{})
	out := make([]id.DocumentType, 0)
	for _, d := range s.docs {
		if d.OwnerID != owner || d.Status != models.StatusApproved {
			continue
		}
		if _, dup := seen[d.Type]; dup {
			continue
		}
		seen[d.Type] = struct{}{}
		out = append(out, d.Type)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// ListPending returns the review queue, oldest submission first.
func (s *InMemory) ListPending(_ context.Context, limit int) ([]*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Document, 0)
	for _, d := range s.docs {
		if d.Status == models.StatusPending {
			out = append(out, d.Clone())
		}
	}
	sortBySubmission(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Execute validates and mutates a document atomically: no other Execute on
// the store can interleave between validate and the write. validate may be nil.
func (s *InMemory) Execute(_ context.Context, docID id.DocumentID, validate func(*models.Document) error, mutate func(*models.Document)) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.docs[docID]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", docID, sentinel.ErrNotFound)
	}
	working := stored.Clone()
	if validate != nil {
		if err := validate(working); err != nil {
			return nil, err
		}
	}
	mutate(working)
	s.docs[docID] = working.Clone()
	return working, nil
}

func sortBySubmission(docs []*models.Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		if docs[i].SubmittedAt.Equal(docs[j].SubmittedAt) {
			return docs[i].ID.String() < docs[j].ID.String()
		}
		return docs[i].SubmittedAt.Before(docs[j].SubmittedAt)
	})
}
