package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sokonihq/sokoni-backend/pkg/logger"
)

type stubExpirer struct {
	batches []int
	err     error
	calls   int
}

func (s *stubExpirer) ExpireStalePending(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	if s.calls >= len(s.batches) {
		return 0, nil
	}
	count := s.batches[s.calls]
	s.calls++
	return count, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func TestOrderExpiryJobDrainsBatches(t *testing.T) {
	expirer := &stubExpirer{batches: []int{expiryBatchSize, 3}}
	job, err := NewOrderExpiryJob(OrderExpiryJobParams{
		Logger: testLogger(),
		Orders: expirer,
		TTL:    7 * 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("build job: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if expirer.calls != 2 {
		t.Fatalf("expected 2 batches, got %d", expirer.calls)
	}
}

func TestOrderExpiryJobSurfacesErrors(t *testing.T) {
	expirer := &stubExpirer{err: errors.New("database down")}
	job, err := NewOrderExpiryJob(OrderExpiryJobParams{
		Logger: testLogger(),
		Orders: expirer,
		TTL:    7 * 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("build job: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error from failing expirer")
	}
}

func TestOrderExpiryJobValidatesParams(t *testing.T) {
	if _, err := NewOrderExpiryJob(OrderExpiryJobParams{Logger: testLogger(), TTL: time.Hour}); err == nil {
		t.Fatal("expected error without orders service")
	}
	if _, err := NewOrderExpiryJob(OrderExpiryJobParams{Logger: testLogger(), Orders: &stubExpirer{}}); err == nil {
		t.Fatal("expected error without ttl")
	}
}
