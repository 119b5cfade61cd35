package workflow_test

import (
	"context"
	"sync"

	"trustcore/internal/audittrail"
	id "trustcore/pkg/domain"
)

// recordingTrail is an AuditRecorder that keeps records in memory.
type recordingTrail struct {
	mu      sync.Mutex
	records []audittrail.Record
}

func (r *recordingTrail) Record(_ context.Context, e audittrail.Entry) (*audittrail.Record, error) {
	rec, err := audittrail.NewRecord(e)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.records = append(r.records, *rec)
	r.mu.Unlock()
	return rec, nil
}

func (r *recordingTrail) History(_ context.Context, userID id.UserID) ([]audittrail.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []audittrail.Record
	for i := len(r.records) - 1; i >= 0; i-- {
		if r.records[i].UserID == userID {
			out = append(out, r.records[i])
		}
	}
	return out, nil
}

func (r *recordingTrail) recorded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records) > 0
}
