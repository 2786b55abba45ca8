// internal/historian/historian.go pops finished-game results from a Redis queue and
// persists them in batches.
package historian

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jason-s-yu/gridbingo/internal/cache"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ResultWriter persists a batch of results atomically.
type ResultWriter interface {
	InsertResults(ctx context.Context, results []cache.GameResult) error
}

// Config tunes the batching loop.
type Config struct {
	Queue      string
	BatchSize  int
	FlushDelay time.Duration
	// PopTimeout bounds each blocking pop, and so how quickly Run notices cancellation.
	PopTimeout time.Duration
}

// Service is the results archiver.
type Service struct {
	rdb    *redis.Client
	writer ResultWriter
	log    logrus.FieldLogger
	cfg    Config
	batch  []cache.GameResult
}

func NewService(rdb *redis.Client, writer ResultWriter, log logrus.FieldLogger, cfg Config) *Service {
	if cfg.Queue == "" {
		cfg.Queue = cache.DefaultQueueName
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.FlushDelay <= 0 {
		cfg.FlushDelay = 500 * time.Millisecond
	}
	if cfg.PopTimeout <= 0 {
		cfg.PopTimeout = time.Second
	}
	return &Service{
		rdb:    rdb,
		writer: writer,
		log:    log.WithField("queue", cfg.Queue),
		cfg:    cfg,
		batch:  make([]cache.GameResult, 0, cfg.BatchSize),
	}
}

// Run reads the queue until ctx ends, flushing whenever the batch fills or the flush
// delay elapses. Pending records are flushed before it returns.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.FlushDelay)
	defer ticker.Stop()
	s.log.Info("historian started")

	for {
		select {
		case <-ctx.Done():
			s.flush(context.WithoutCancel(ctx))
			s.log.Info("historian shutting down")
			return nil

		case <-ticker.C:
			s.flush(ctx)

		default:
			res, err := s.rdb.BLPop(ctx, s.cfg.PopTimeout, s.cfg.Queue).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
					s.log.WithError(err).Error("BLPop")
				}
				continue
			}
			// res[0] is the queue name and res[1] the payload.
			var result cache.GameResult
			if err := json.Unmarshal([]byte(res[1]), &result); err != nil {
				s.log.WithError(err).Warn("invalid result record")
				continue
			}
			s.batch = append(s.batch, result)
			if len(s.batch) >= s.cfg.BatchSize {
				s.flush(ctx)
			}
		}
	}
}

// flush writes the batch. A failed batch is pushed back onto the queue for a later run.
func (s *Service) flush(ctx context.Context) {
	if len(s.batch) == 0 {
		return
	}
	batch := s.batch
	s.batch = make([]cache.GameResult, 0, s.cfg.BatchSize)

	if err := s.writer.InsertResults(ctx, batch); err != nil {
		s.log.WithError(err).WithField("count", len(batch)).Error("flush results")
		s.requeue(context.WithoutCancel(ctx), batch)
		return
	}
	s.log.WithField("count", len(batch)).Info("flushed results")
}

func (s *Service) requeue(ctx context.Context, batch []cache.GameResult) {
	payloads := make([]any, 0, len(batch))
	for _, r := range batch {
		data, err := json.Marshal(r)
		if err != nil {
			continue
		}
		payloads = append(payloads, data)
	}
	if err := s.rdb.RPush(ctx, s.cfg.Queue, payloads...).Err(); err != nil {
		s.log.WithError(err).WithField("count", len(batch)).Error("requeue results, records lost")
	}
}
