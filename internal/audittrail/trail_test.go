package audittrail_test

//go:generate mockgen -source=trail.go -destination=mocks/mocks.go -package=mocks Store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"trustcore/internal/audittrail"
	"trustcore/internal/audittrail/mocks"
	id "trustcore/pkg/domain"
	dErrors "trustcore/pkg/domain-errors"
)

type TrailSuite struct {
	suite.Suite
	ctx   context.Context
	store *audittrail.InMemoryStore
	trail *audittrail.Trail
	user  id.UserID
	admin id.AdminID
	t0    time.Time
}

func TestTrailSuite(t *testing.T) {
	suite.Run(t, new(TrailSuite))
}

func (s *TrailSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = audittrail.NewInMemoryStore()
	s.trail = audittrail.New(s.store)
	s.user = id.NewUserID()
	s.admin = id.NewAdminID()
	s.t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
}

func (s *TrailSuite) entry(approved bool, reason string, at time.Time) audittrail.Entry {
	return audittrail.Entry{
		UserID:       s.user,
		AdminID:      s.admin,
		DocumentType: id.DocumentTypeIdentityCard,
		Approved:     approved,
		Reason:       reason,
		DecidedAt:    at,
	}
}

func (s *TrailSuite) TestRecord() {
	s.Run("appends an approval without reason", func() {
		r, err := s.trail.Record(s.ctx, s.entry(true, "", s.t0))
		s.Require().NoError(err)
		s.True(r.Approved)
		s.NotZero(r.ID)
	})

	s.Run("requires a reason for rejections", func() {
		_, err := s.trail.Record(s.ctx, s.entry(false, "  ", s.t0))
		s.True(dErrors.HasCode(err, dErrors.CodeMissingReason))
	})

	s.Run("requires user, admin and document type", func() {
		e := s.entry(true, "", s.t0)
		e.UserID = id.UserID{}
		_, err := s.trail.Record(s.ctx, e)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

		e = s.entry(true, "", s.t0)
		e.AdminID = id.AdminID{}
		_, err = s.trail.Record(s.ctx, e)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

		e = s.entry(true, "", s.t0)
		e.DocumentType = "passport"
		_, err = s.trail.Record(s.ctx, e)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("copies metadata", func() {
		e := s.entry(false, "blurry photo", s.t0)
		e.Metadata = map[string]string{"channel": "backoffice"}
		r, err := s.trail.Record(s.ctx, e)
		s.Require().NoError(err)

		e.Metadata["channel"] = "tampered"
		s.Equal("backoffice", r.Metadata["channel"])
	})
}

func (s *TrailSuite) TestHistoryNewestFirst() {
	first, err := s.trail.Record(s.ctx, s.entry(false, "blurry photo", s.t0))
	s.Require().NoError(err)
	second, err := s.trail.Record(s.ctx, s.entry(true, "", s.t0.Add(time.Hour)))
	s.Require().NoError(err)
	// Same timestamp as second; recorded later so it sorts first.
	third, err := s.trail.Record(s.ctx, s.entry(true, "", s.t0.Add(time.Hour)))
	s.Require().NoError(err)
	_, err = s.trail.Record(s.ctx, audittrail.Entry{
		UserID: id.NewUserID(), AdminID: s.admin, DocumentType: id.DocumentTypeIncomeProof, Approved: true,
	})
	s.Require().NoError(err)

	history, err := s.trail.History(s.ctx, s.user)
	s.Require().NoError(err)
	s.Require().Len(history, 3)
	s.Equal(third.ID, history[0].ID)
	s.Equal(second.ID, history[1].ID)
	s.Equal(first.ID, history[2].ID)
	s.Equal("blurry photo", history[2].Reason)
}

func (s *TrailSuite) TestHistoryIsolatedFromCallerMutation() {
	_, err := s.trail.Record(s.ctx, s.entry(false, "blurry photo", s.t0))
	s.Require().NoError(err)

	history, err := s.trail.History(s.ctx, s.user)
	s.Require().NoError(err)
	history[0].Reason = "edited"

	again, err := s.trail.History(s.ctx, s.user)
	s.Require().NoError(err)
	s.Equal("blurry photo", again[0].Reason)
}

func TestTrail_FailClosed(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	reg := prometheus.NewRegistry()
	m := audittrail.NewMetrics(reg)
	trail := audittrail.New(store, audittrail.WithMetrics(m))

	outage := errors.New("connection refused")
	store.EXPECT().Append(gomock.Any(), gomock.Any()).Return(outage)

	_, err := trail.Record(context.Background(), audittrail.Entry{
		UserID:       id.NewUserID(),
		AdminID:      id.NewAdminID(),
		DocumentType: id.DocumentTypeSelfieWithID,
		Approved:     true,
	})
	if !dErrors.HasCode(err, dErrors.CodeInternal) || !errors.Is(err, outage) {
		t.Fatalf("expected internal error wrapping outage, got %v", err)
	}
	if got := testutil.ToFloat64(m.PersistFailures); got != 1 {
		t.Fatalf("expected one persist failure, got %v", got)
	}
}

func TestTrail_HistoryStoreFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	trail := audittrail.New(store)

	userID := id.NewUserID()
	store.EXPECT().ListByUser(gomock.Any(), userID).Return(nil, errors.New("timeout"))

	_, err := trail.History(context.Background(), userID)
	if !dErrors.HasCode(err, dErrors.CodeInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
}
