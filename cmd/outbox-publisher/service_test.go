package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/pharmanet-gr/pharmanet-backend/pkg/config"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/db/models"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/enums"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/logger"
)

type stubRepo struct {
	events    []models.OutboxEvent
	published []uuid.UUID
	failed    map[uuid.UUID]error
}

func (r *stubRepo) FetchPublishable(limit, maxAttempts int) ([]models.OutboxEvent, error) {
	if len(r.events) > limit {
		return r.events[:limit], nil
	}
	return r.events, nil
}

func (r *stubRepo) MarkPublished(id uuid.UUID) error {
	r.published = append(r.published, id)
	return nil
}

func (r *stubRepo) MarkFailed(id uuid.UUID, err error) error {
	if r.failed == nil {
		r.failed = map[uuid.UUID]error{}
	}
	r.failed[id] = err
	return nil
}

type stubResult struct {
	err error
}

func (r stubResult) Get(context.Context) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return "server-id", nil
}

type stubPublisher struct {
	calls    int
	failures int
	err      error
	lastMsg  *gcppubsub.Message
}

func (p *stubPublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	p.calls++
	p.lastMsg = msg
	if p.calls <= p.failures {
		return stubResult{err: p.err}
	}
	return stubResult{}
}

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

func newTestService(t *testing.T, repo outboxRepository, pub publisher) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Config: &config.Config{
			Outbox: config.OutboxConfig{BatchSize: 10, PollIntervalMS: 10, MaxAttempts: 5},
		},
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
		DB:         stubPinger{},
		Repository: repo,
		Publisher:  pub,
	})
	require.NoError(t, err)
	return svc
}

func testEvent(t *testing.T) models.OutboxEvent {
	t.Helper()
	payload, err := json.Marshal(map[string]any{"version": 1})
	require.NoError(t, err)
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderPlaced,
		AggregateType: enums.AggregateOrder,
		AggregateID:   "42",
		Payload:       payload,
	}
}

func TestProcessBatch_PublishesAndMarks(t *testing.T) {
	event := testEvent(t)
	repo := &stubRepo{events: []models.OutboxEvent{event}}
	pub := &stubPublisher{}
	svc := newTestService(t, repo, pub)

	processed, err := svc.ProcessBatch(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, processed)
	assert.Equal(t, []uuid.UUID{event.ID}, repo.published)
	assert.Empty(t, repo.failed)
	require.NotNil(t, pub.lastMsg)
	assert.Equal(t, string(enums.EventOrderPlaced), pub.lastMsg.Attributes["event_type"])
	assert.Equal(t, "42", pub.lastMsg.Attributes["aggregate_id"])
}

func TestProcessBatch_RetriesTransientErrors(t *testing.T) {
	event := testEvent(t)
	repo := &stubRepo{events: []models.OutboxEvent{event}}
	pub := &stubPublisher{failures: 2, err: status.Error(codes.Unavailable, "try later")}
	svc := newTestService(t, repo, pub)

	processed, err := svc.ProcessBatch(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, processed)
	assert.Equal(t, 3, pub.calls)
	assert.Equal(t, []uuid.UUID{event.ID}, repo.published)
}

func TestProcessBatch_MarksFailureWithoutWedgingBatch(t *testing.T) {
	broken := testEvent(t)
	healthy := testEvent(t)
	repo := &stubRepo{events: []models.OutboxEvent{broken, healthy}}
	pub := &stubPublisher{failures: 1, err: status.Error(codes.InvalidArgument, "bad payload")}
	svc := newTestService(t, repo, pub)

	processed, err := svc.ProcessBatch(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, processed)
	require.Contains(t, repo.failed, broken.ID)
	assert.Equal(t, []uuid.UUID{healthy.ID}, repo.published)
}

func TestNewService_RequiresRepository(t *testing.T) {
	_, err := NewService(ServiceParams{
		Config:    &config.Config{},
		Logger:    logger.New(logger.Options{ServiceName: "test"}),
		DB:        stubPinger{},
		Publisher: &stubPublisher{},
	})
	assert.Error(t, err)
}

func TestProcessBatch_PermanentErrorCountsAttempt(t *testing.T) {
	event := testEvent(t)
	repo := &stubRepo{events: []models.OutboxEvent{event}}
	pub := &stubPublisher{failures: 10, err: errors.New("schema rejected")}
	svc := newTestService(t, repo, pub)

	_, err := svc.ProcessBatch(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, pub.calls)
	require.Contains(t, repo.failed, event.ID)
	assert.Empty(t, repo.published)
}
