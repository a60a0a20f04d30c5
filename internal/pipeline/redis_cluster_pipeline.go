package pipeline

import (
	"context"
	"sync"
	"time"

	"threatcluster/internal/engine"
	inputredis "threatcluster/internal/input/redis"
	"threatcluster/internal/logger"
	"threatcluster/internal/metrics"
	"threatcluster/internal/resultstore"
	"threatcluster/internal/rules"
	"threatcluster/internal/transform/cloudtrail"
	"threatcluster/pkg/models"
)

// RedisClusterPipeline consumes audit-log events from Redis, groups them
// into batches and runs the clustering engine on each batch.
type RedisClusterPipeline struct {
	consumer      *inputredis.Consumer
	ruleEngine    rules.Engine
	engine        *engine.Engine
	writers       []ResultWriter
	store         *resultstore.RedisStore
	workers       int
	batchSize     int
	flushInterval time.Duration
	minBatch      int
}

// NewRedisClusterPipeline creates the serve-mode pipeline. minBatch is the
// smallest batch worth clustering; it must be at least the engine's k.
func NewRedisClusterPipeline(consumer *inputredis.Consumer, ruleEngine rules.Engine, eng *engine.Engine, writers []ResultWriter, store *resultstore.RedisStore, workers, batchSize, minBatch int, flushInterval time.Duration) *RedisClusterPipeline {
	return &RedisClusterPipeline{
		consumer:      consumer,
		ruleEngine:    ruleEngine,
		engine:        eng,
		writers:       writers,
		store:         store,
		workers:       workers,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		minBatch:      minBatch,
	}
}

// Run starts the pipeline loop and blocks until the context is cancelled.
func (p *RedisClusterPipeline) Run(ctx context.Context) error {
	logger.Infof("Redis cluster pipeline started")

	if p.workers <= 0 {
		p.workers = 4
	}
	if p.batchSize <= 0 {
		p.batchSize = 500
	}
	if p.flushInterval <= 0 {
		p.flushInterval = 30 * time.Second
	}
	if p.minBatch <= 0 {
		p.minBatch = 10
	}

	msgCh := make(chan []byte, p.workers*4)
	eventCh := make(chan *models.LogEvent, p.workers*4)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		p.readLoop(ctx, msgCh)
		close(msgCh)
	}()

	var parseWg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		parseWg.Add(1)
		go func() {
			defer parseWg.Done()
			p.parseLoop(msgCh, eventCh)
		}()
	}
	go func() {
		parseWg.Wait()
		close(eventCh)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		p.batchLoop(ctx, eventCh)
	}()

	<-ctx.Done()
	wg.Wait()
	return ctx.Err()
}

// Close releases pipeline resources.
func (p *RedisClusterPipeline) Close() error {
	for _, w := range p.writers {
		if err := w.Close(); err != nil {
			logger.Errorf("Failed to close result writer: %v", err)
		}
	}
	if p.store != nil {
		if err := p.store.Close(); err != nil {
			logger.Errorf("Failed to close result store: %v", err)
		}
	}
	if p.consumer != nil {
		return p.consumer.Close()
	}
	return nil
}

func (p *RedisClusterPipeline) readLoop(ctx context.Context, out chan<- []byte) {
	for {
		payload, err := p.consumer.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Errorf("Failed to pop redis message: %v", err)
			time.Sleep(500 * time.Millisecond)
			continue
		}
		if payload == nil {
			continue
		}
		out <- payload
	}
}

func (p *RedisClusterPipeline) parseLoop(in <-chan []byte, out chan<- *models.LogEvent) {
	for payload := range in {
		event, err := cloudtrail.Parse(payload)
		if err != nil {
			logger.Warnf("Failed to parse audit-log event: %v", err)
			metrics.ObserveMalformedEvent()
			continue
		}
		if p.ruleEngine != nil {
			event.DetectionTags = p.ruleEngine.Apply(event)
		}
		out <- event
	}
}

func (p *RedisClusterPipeline) batchLoop(ctx context.Context, in <-chan *models.LogEvent) {
	ticker := time.NewTicker(p.flushInterval)
	defer ticker.Stop()

	var batch []*models.LogEvent

	flush := func() {
		if len(batch) < p.minBatch {
			return
		}
		p.analyze(ctx, batch)
		batch = nil
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case <-ticker.C:
			flush()
		case event, ok := <-in:
			if !ok {
				flush()
				return
			}
			batch = append(batch, event)
			if len(batch) >= p.batchSize {
				flush()
			}
		}
	}
}

func (p *RedisClusterPipeline) analyze(ctx context.Context, events []*models.LogEvent) {
	result, err := p.engine.Run(events)
	if err != nil {
		logger.Errorf("Clustering run failed for batch of %d events: %v", len(events), err)
		metrics.ObserveRunFailure()
		return
	}
	metrics.ObserveRun(result)
	logger.Infof("Clustering run: events=%d clusters=%d threats=%d elapsed=%s",
		result.TotalEvents, len(result.Clusters), result.Threats.TotalThreats, result.Metrics.ProcessingTime)

	for _, w := range p.writers {
		if err := w.WriteResult(result); err != nil {
			logger.Errorf("Failed to write clustering result: %v", err)
		}
	}
	if p.store != nil {
		if err := p.store.Publish(ctx, result); err != nil {
			logger.Errorf("Failed to publish clustering result: %v", err)
		}
	}
}
