package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/iho/famledger/internal/domain"
	"github.com/iho/famledger/internal/infrastructure/metrics"
	"github.com/iho/famledger/internal/usecase"
	"github.com/iho/famledger/internal/usecase/mocks"
)

func TestJanitorCleanupIdempotency(t *testing.T) {
	store := mocks.NewMemoryIdempotencyStore()
	store.Now = func() time.Time { return testNow }
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, domain.NewIdempotencyRecord(newRequestID(), domain.OpTransfer, "{}", nil, 0, testNow)))
	require.NoError(t, store.Save(ctx, domain.NewIdempotencyRecord(newRequestID(), domain.OpTransfer, "{}", nil, time.Minute, testNow.Add(-2*time.Minute))))
	live := domain.NewIdempotencyRecord(newRequestID(), domain.OpTransfer, "{}", nil, time.Hour, testNow)
	require.NoError(t, store.Save(ctx, live))

	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	janitor := usecase.NewJanitor(usecase.CleanupConfig{Store: store, Metrics: m, Logger: zerolog.Nop()})

	removed, err := janitor.CleanupIdempotency(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)
	assert.Equal(t, float64(2), testutil.ToFloat64(m.IdempotencyCleaned))

	exists, err := store.Exists(ctx, live.RequestID)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestJanitorStopsOnCancel(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockIdempotencyStore(ctrl)
	store.EXPECT().CleanupExpired(gomock.Any()).Return(int64(0), nil).MinTimes(1)

	janitor := usecase.NewJanitor(usecase.CleanupConfig{Store: store, Logger: zerolog.Nop(), Interval: 10 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- janitor.Start(ctx) }()

	time.Sleep(25 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop after cancel")
	}
}

func TestLayeredIdempotencyStore(t *testing.T) {
	ctx := context.Background()
	record := domain.NewIdempotencyRecord(newRequestID(), domain.OpSplitTransaction, `{"ok":true}`, nil, time.Hour, time.Now().UTC())

	t.Run("reads cache first", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		cache := mocks.NewMockIdempotencyStore(ctrl)
		durable := mocks.NewMockIdempotencyStore(ctrl)
		cache.EXPECT().Get(gomock.Any(), record.RequestID).Return(record, nil)

		got, err := usecase.NewLayeredIdempotencyStore(cache, durable, zerolog.Nop()).Get(ctx, record.RequestID)
		require.NoError(t, err)
		assert.Equal(t, record, got)
	})

	t.Run("backfills cache from durable store", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		cache := mocks.NewMockIdempotencyStore(ctrl)
		durable := mocks.NewMockIdempotencyStore(ctrl)
		cache.EXPECT().Get(gomock.Any(), record.RequestID).Return(nil, errors.New("redis down"))
		durable.EXPECT().Get(gomock.Any(), record.RequestID).Return(record, nil)
		cache.EXPECT().Save(gomock.Any(), record).Return(errors.New("redis down"))

		got, err := usecase.NewLayeredIdempotencyStore(cache, durable, zerolog.Nop()).Get(ctx, record.RequestID)
		require.NoError(t, err)
		assert.Equal(t, record, got)
	})

	t.Run("durable write failure fails save", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		cache := mocks.NewMockIdempotencyStore(ctrl)
		durable := mocks.NewMockIdempotencyStore(ctrl)
		durable.EXPECT().Save(gomock.Any(), record).Return(errors.New("pg down"))

		err := usecase.NewLayeredIdempotencyStore(cache, durable, zerolog.Nop()).Save(ctx, record)
		require.Error(t, err)
	})

	t.Run("cleanup delegates to durable store", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		cache := mocks.NewMockIdempotencyStore(ctrl)
		durable := mocks.NewMockIdempotencyStore(ctrl)
		durable.EXPECT().CleanupExpired(gomock.Any()).Return(int64(3), nil)

		n, err := usecase.NewLayeredIdempotencyStore(cache, durable, zerolog.Nop()).CleanupExpired(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
	})
}
