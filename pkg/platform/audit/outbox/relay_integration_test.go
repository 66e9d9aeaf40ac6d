//go:build integration

package outbox_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "immo/pkg/platform/audit"
	"immo/pkg/platform/audit/outbox"
	"immo/pkg/platform/audit/store/kafka"
	"immo/pkg/platform/audit/store/postgres"
	"immo/pkg/platform/circuit"
	"immo/pkg/testutil/containers"
)

type RelaySuite struct {
	suite.Suite
	pg     *containers.PostgresContainer
	broker string
	store  *postgres.Store
}

func TestRelaySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RelaySuite))
}

func (s *RelaySuite) SetupSuite() {
	mgr := containers.GetManager()
	s.pg = mgr.GetPostgres(s.T())
	s.broker = mgr.GetRedpanda(s.T()).Broker
	s.store = postgres.New(s.pg.DB)
}

func (s *RelaySuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateTables(context.Background(), "audit_outbox"))
}

func (s *RelaySuite) appendEvents(ctx context.Context, subjects ...string) {
	for i, subject := range subjects {
		s.Require().NoError(s.store.Append(ctx, audit.Event{
			Timestamp:   time.Date(2026, 5, 4, 10, i, 0, 0, time.UTC),
			ActorID:     "commercial-1",
			SubjectType: "reservation",
			SubjectID:   subject,
			Action:      string(audit.EventReservationCreated),
		}))
	}
}

func (s *RelaySuite) newSink(ctx context.Context) (*kafka.Sink, string) {
	topic := fmt.Sprintf("immo-audit-%s", uuid.NewString()[:8])
	sink, err := kafka.New([]string{s.broker}, topic)
	s.Require().NoError(err)
	s.T().Cleanup(sink.Close)
	s.Require().NoError(sink.EnsureTopic(ctx, 1, 1))
	return sink, topic
}

func (s *RelaySuite) consumeKeys(topic string, want int) []string {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(s.broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	var keys []string
	for len(keys) < want {
		fetches := client.PollFetches(ctx)
		if ctx.Err() != nil {
			break
		}
		fetches.EachRecord(func(r *kgo.Record) {
			keys = append(keys, string(r.Key))
		})
	}
	return keys
}

func (s *RelaySuite) TestPublishesInBatchesKeyedBySubject() {
	ctx := context.Background()
	s.appendEvents(ctx, "res-1", "res-2", "res-3")
	sink, topic := s.newSink(ctx)

	relay := outbox.NewRelay(s.pg.DB, s.store, sink, outbox.WithBatchSize(2))

	for _, want := range []int{2, 1, 0} {
		n, err := relay.RunOnce(ctx)
		s.Require().NoError(err)
		s.Equal(want, n)
	}

	s.ElementsMatch([]string{"res-1", "res-2", "res-3"}, s.consumeKeys(topic, 3))
}

type failingPublisher struct {
	calls int
}

func (p *failingPublisher) Publish(context.Context, string, []byte) error {
	p.calls++
	return errors.New("broker unavailable")
}

func (s *RelaySuite) TestFailedBatchStaysUnpublishedAndBreakerProbesSingly() {
	ctx := context.Background()
	s.appendEvents(ctx, "res-1", "res-2", "res-3")

	pub := &failingPublisher{}
	breaker := circuit.New("audit-outbox-test", circuit.WithFailureThreshold(1))
	relay := outbox.NewRelay(s.pg.DB, s.store, pub, outbox.WithBreaker(breaker))

	n, err := relay.RunOnce(ctx)
	s.Require().Error(err)
	s.Zero(n)
	s.True(breaker.IsOpen())

	_, err = relay.RunOnce(ctx)
	s.Require().Error(err)
	s.Equal(2, pub.calls, "first run stops at the failing entry, the probe sends one")

	// Nothing was marked published, so a healthy publisher drains everything.
	sink, topic := s.newSink(ctx)
	healthy := outbox.NewRelay(s.pg.DB, s.store, sink)
	n, err = healthy.RunOnce(ctx)
	s.Require().NoError(err)
	s.Equal(3, n)
	s.Len(s.consumeKeys(topic, 3), 3)
}
