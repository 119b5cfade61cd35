package workflow_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"trustcore/internal/audittrail"
	"trustcore/internal/document/models"
	docService "trustcore/internal/document/service"
	docStore "trustcore/internal/document/store"
	identity "trustcore/internal/identity/models"
	userStore "trustcore/internal/identity/store/user"
	"trustcore/internal/notification"
	"trustcore/internal/platform/usertx"
	"trustcore/internal/workflow"
	id "trustcore/pkg/domain"
	"trustcore/pkg/requestcontext"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type sentEvent struct {
	userID  id.UserID
	kind    notification.Kind
	payload map[string]string
}

// recordingNotifier collects events in delivery order.
type recordingNotifier struct {
	mu     sync.Mutex
	events []sentEvent
}

func (r *recordingNotifier) Notify(_ context.Context, userID id.UserID, kind notification.Kind, payload map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, sentEvent{userID: userID, kind: kind, payload: payload})
}

func (r *recordingNotifier) count(kind notification.Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.kind == kind {
			n++
		}
	}
	return n
}

func (r *recordingNotifier) last(kind notification.Kind) (sentEvent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].kind == kind {
			return r.events[i], true
		}
	}
	return sentEvent{}, false
}

func (r *recordingNotifier) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// harness wires the workflow to in-memory stores the way serve does.
type harness struct {
	ctx      context.Context
	users    *userStore.InMemory
	docs     *docService.Service
	workflow *workflow.Service
	notifier *recordingNotifier
	admin    id.AdminID
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	notifier := &recordingNotifier{}
	h := newHarnessWith(t, audittrail.New(audittrail.NewInMemoryStore()), notifier)
	h.notifier = notifier
	return h
}

func newHarnessWith(t *testing.T, audit workflow.AuditRecorder, notifier workflow.Notifier, opts ...workflow.Option) *harness {
	t.Helper()
	locker := usertx.NewSharded(2 * time.Second)
	users := userStore.NewInMemory()
	docs := docService.New(docStore.NewInMemory(), users, locker)
	opts = append([]workflow.Option{
		workflow.WithNotifier(notifier),
		workflow.WithBcryptCost(bcrypt.MinCost),
	}, opts...)
	wf := workflow.New(users, docs, audit, locker, opts...)
	docs.SetDecisionListener(wf)

	return &harness{
		ctx:      requestcontext.WithTime(context.Background(), t0),
		users:    users,
		docs:     docs,
		workflow: wf,
		admin:    id.NewAdminID(),
	}
}

func (h *harness) register(t *testing.T, email string) id.UserID {
	t.Helper()
	u, err := h.workflow.Register(h.ctx, workflow.RegisterRequest{Email: email, Password: "correct horse battery"})
	require.NoError(t, err)
	return u.ID
}

func (h *harness) submit(t *testing.T, owner id.UserID, docType id.DocumentType) *models.Document {
	t.Helper()
	d, err := h.docs.Submit(h.ctx, models.SubmitRequest{
		OwnerID: owner,
		Type:    string(docType),
		FileRef: "blob://" + owner.String() + "/" + string(docType),
	})
	require.NoError(t, err)
	return d
}

func (h *harness) approve(t *testing.T, owner id.UserID, docType id.DocumentType) {
	t.Helper()
	d := h.submit(t, owner, docType)
	_, err := h.docs.Approve(h.ctx, d.ID, h.admin, "")
	require.NoError(t, err)
}

func (h *harness) user(t *testing.T, userID id.UserID) *identity.User {
	t.Helper()
	u, err := h.workflow.Get(h.ctx, userID)
	require.NoError(t, err)
	return u
}
