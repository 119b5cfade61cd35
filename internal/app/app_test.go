package app

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trustcore/internal/document/models"
	"trustcore/internal/platform/config"
	"trustcore/internal/workflow"
	id "trustcore/pkg/domain"
)

func memoryConfig() config.Config {
	return config.Config{
		TxTimeout:  time.Second,
		BcryptCost: 4,
		Notify: config.NotifyConfig{
			Backend:       config.NotifyLog,
			BufferSize:    16,
			BatchSize:     4,
			FlushInterval: 10 * time.Millisecond,
		},
	}
}

func TestNewInMemory(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, memoryConfig(), slog.New(slog.NewJSONHandler(io.Discard, nil)), prometheus.NewRegistry())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	assert.Empty(t, a.Checks())

	u, err := a.Workflow.Register(ctx, workflow.RegisterRequest{Email: "wired@example.com", Password: "long enough password"})
	require.NoError(t, err)
	_, err = a.Workflow.ConfirmEmail(ctx, u.ID)
	require.NoError(t, err)

	d, err := a.Documents.Submit(ctx, models.SubmitRequest{OwnerID: u.ID, Type: "income_proof", FileRef: "blob://payslip"})
	require.NoError(t, err)
	_, err = a.Documents.Approve(ctx, d.ID, id.NewAdminID(), "")
	require.NoError(t, err)

	score, err := a.Workflow.GetTrustScore(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 2.0, score.Score)

	history, err := a.Workflow.History(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- a.Dispatcher.Run(runCtx) }()
	cancel()
	require.NoError(t, <-done)
}

func TestNewRejectsUnknownBackend(t *testing.T) {
	cfg := memoryConfig()
	cfg.Notify.Backend = "pigeon"
	_, err := New(context.Background(), cfg, slog.New(slog.NewJSONHandler(io.Discard, nil)), prometheus.NewRegistry())
	assert.Error(t, err)
}
