//go:build integration

package worker_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"zeropass/internal/platform/kafka/producer"
	"zeropass/pkg/platform/audit/outbox"
	outboxpostgres "zeropass/pkg/platform/audit/outbox/store/postgres"
	"zeropass/pkg/platform/audit/outbox/worker"
	"zeropass/pkg/testutil/containers"
)

type WorkerIntegrationSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	kafka    *containers.KafkaContainer
	store    *outboxpostgres.Store
	producer *producer.Producer
}

func TestWorkerIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(WorkerIntegrationSuite))
}

func (s *WorkerIntegrationSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.kafka = mgr.GetKafka(s.T())
	s.store = outboxpostgres.New(s.postgres.DB)

	cfg := producer.DefaultConfig(s.kafka.Brokers)
	cfg.DeliveryTimeout = 10 * time.Second
	prod, err := producer.New(cfg, nil)
	s.Require().NoError(err)
	s.producer = prod
}

func (s *WorkerIntegrationSuite) TearDownSuite() {
	if s.producer != nil {
		s.producer.Close(context.Background())
	}
}

func (s *WorkerIntegrationSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateAll(context.Background()))
}

// Entries written to the outbox reach Kafka in order and end up processed.
func (s *WorkerIntegrationSuite) TestOutboxToKafka() {
	ctx := context.Background()
	topic := "zeropass-outbox-it"
	s.Require().NoError(s.kafka.CreateTopic(ctx, topic, 1, 1))

	now := time.Now().UTC()
	var entries []*outbox.Entry
	for i, et := range []string{"credential_submitted", "credential_verified", "proof_generated"} {
		e := outbox.NewEntry("credential", "zpc_it", et, []byte(`{"action":"`+et+`"}`), now.Add(time.Duration(i)*time.Millisecond))
		s.Require().NoError(s.store.Append(ctx, e))
		entries = append(entries, e)
	}

	w := worker.New(s.store, s.producer,
		worker.WithTopic(topic),
		worker.WithPollInterval(50*time.Millisecond),
	)
	w.Start()

	s.Eventually(func() bool {
		n, err := s.store.CountPending(ctx)
		return err == nil && n == 0
	}, 10*time.Second, 50*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	s.Require().NoError(w.Stop(stopCtx))

	consumer, err := s.kafka.NewConsumer("zeropass-outbox-it-consumer", topic)
	s.Require().NoError(err)
	defer consumer.Close()

	var keys []string
	rec := s.kafka.WaitForRecord(ctx, consumer, 10*time.Second, func(r *kgo.Record) bool {
		keys = append(keys, string(r.Key))
		return len(keys) == len(entries)
	})
	s.Require().NotNil(rec)
	s.Require().Len(keys, len(entries))
	for i, e := range entries {
		s.Equal(e.ID.String(), keys[i])
	}
}
