package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/estivenmendezr98/TAREAS/internal/config"
	"github.com/estivenmendezr98/TAREAS/internal/logger"

	"github.com/gofrs/uuid"
	"github.com/redis/go-redis/v9"
)

type JobType string

const (
	JobTypeEvidenceCleanup JobType = "evidence_cleanup"
)

type Job struct {
	ID        string                 `json:"id"`
	Type      JobType                `json:"type"`
	Payload   map[string]interface{} `json:"payload"`
	Attempts  int                    `json:"attempts"`
	MaxTries  int                    `json:"max_tries"`
	CreatedAt time.Time              `json:"created_at"`
	ProcessAt time.Time              `json:"process_at"`
}

type JobHandler func(ctx context.Context, job *Job) error

// DeadJob is what lands on the dead-letter list after the last attempt.
type DeadJob struct {
	Job      *Job      `json:"original_job"`
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failed_at"`
}

// Queue names derived from the base queue. Jobs waiting for a retry sit in a
// sorted set scored by their due time until promoted back onto the list.
func scheduledKey(queue string) string { return queue + ":scheduled" }
func deadKey(queue string) string      { return queue + ":dead" }

type Worker struct {
	client       *redis.Client
	handlers     map[JobType]JobHandler
	queue        string
	retryDelay   time.Duration
	pollTimeout  time.Duration
	jobTimeout   time.Duration
	now          func() time.Time
	log          *logger.Logger
	mu           sync.RWMutex
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	processed    atomic.Int64
	failed       atomic.Int64
	deadLettered atomic.Int64
}

type WorkerConfig struct {
	RedisClient *redis.Client
	Concurrency int
	Queue       string
	RetryDelay  time.Duration
	PollTimeout time.Duration
	JobTimeout  time.Duration
	Logger      *logger.Logger
}

func WorkerConfigFrom(cfg *config.Config, client *redis.Client) WorkerConfig {
	return WorkerConfig{
		RedisClient: client,
		Concurrency: cfg.Worker.Concurrency,
		Queue:       cfg.Worker.Queue,
		RetryDelay:  cfg.Worker.RetryDelay,
	}
}

func NewWorker(config WorkerConfig) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	w := &Worker{
		client:      config.RedisClient,
		handlers:    make(map[JobType]JobHandler),
		queue:       config.Queue,
		retryDelay:  config.RetryDelay,
		pollTimeout: config.PollTimeout,
		jobTimeout:  config.JobTimeout,
		now:         time.Now,
		log:         config.Logger,
		ctx:         ctx,
		cancel:      cancel,
	}
	if w.queue == "" {
		w.queue = string(JobTypeEvidenceCleanup)
	}
	if w.retryDelay <= 0 {
		w.retryDelay = time.Minute
	}
	if w.pollTimeout <= 0 {
		w.pollTimeout = 5 * time.Second
	}
	if w.jobTimeout <= 0 {
		w.jobTimeout = 30 * time.Second
	}
	if w.log == nil {
		w.log = logger.Default()
	}
	w.log = w.log.With(logger.F("component", "worker"), logger.F("queue", w.queue))
	return w
}

func (w *Worker) RegisterHandler(jobType JobType, handler JobHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[jobType] = handler
}

func (w *Worker) Start(concurrency int) {
	if concurrency < 1 {
		concurrency = 1
	}
	w.log.Info("starting worker", logger.F("goroutines", concurrency))

	for i := 0; i < concurrency; i++ {
		w.wg.Add(1)
		go w.workerLoop()
	}
}

func (w *Worker) Stop() {
	w.log.Info("stopping worker")
	w.cancel()
	w.wg.Wait()
	w.log.Info("worker stopped")
}

func (w *Worker) workerLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		default:
			if err := w.processNextJob(w.ctx); err != nil && w.ctx.Err() == nil {
				w.log.Error("error processing job", logger.Err(err))
				select {
				case <-w.ctx.Done():
				case <-time.After(time.Second):
				}
			}
		}
	}
}

// processNextJob promotes due retries, then waits up to pollTimeout for one
// job and runs it.
func (w *Worker) processNextJob(ctx context.Context) error {
	if _, err := w.promoteDue(ctx); err != nil {
		return err
	}

	result, err := w.client.BLPop(ctx, w.pollTimeout, w.queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("failed to pop job: %w", err)
	}

	if len(result) < 2 {
		return fmt.Errorf("invalid job result")
	}

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return fmt.Errorf("failed to unmarshal job: %w", err)
	}

	return w.executeJob(ctx, &job)
}

// promoteDue moves scheduled jobs whose time has come onto the work list.
// ZREM decides which worker wins a member, so each job moves once.
func (w *Worker) promoteDue(ctx context.Context) (int, error) {
	key := scheduledKey(w.queue)
	due, err := w.client.ZRangeByScore(ctx, key, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(w.now().UnixMilli(), 10),
		Count: 100,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read scheduled jobs: %w", err)
	}

	moved := 0
	for _, member := range due {
		removed, err := w.client.ZRem(ctx, key, member).Result()
		if err != nil {
			return moved, fmt.Errorf("failed to claim scheduled job: %w", err)
		}
		if removed == 0 {
			continue
		}
		if err := w.client.RPush(ctx, w.queue, member).Err(); err != nil {
			return moved, fmt.Errorf("failed to promote job: %w", err)
		}
		moved++
	}
	return moved, nil
}

func (w *Worker) executeJob(ctx context.Context, job *Job) error {
	w.mu.RLock()
	handler, exists := w.handlers[job.Type]
	w.mu.RUnlock()

	if !exists {
		w.failed.Add(1)
		return w.moveToDeadQueue(ctx, job, fmt.Errorf("no handler registered for job type: %s", job.Type))
	}

	log := w.log.With(logger.F("job_id", job.ID), logger.F("type", string(job.Type)))
	log.Debug("processing job")

	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	err := handler(jobCtx, job)
	if err != nil {
		w.failed.Add(1)
		job.Attempts++
		if job.Attempts < job.MaxTries {
			log.Warn("job failed, retrying",
				logger.F("attempt", job.Attempts), logger.F("max_tries", job.MaxTries), logger.Err(err))
			return w.retryJob(ctx, job)
		}

		log.Error("job failed permanently", logger.F("attempts", job.Attempts), logger.Err(err))
		return w.moveToDeadQueue(ctx, job, err)
	}

	w.processed.Add(1)
	log.Debug("job completed")
	return nil
}

// retryJob backs off exponentially from the configured base delay.
func (w *Worker) retryJob(ctx context.Context, job *Job) error {
	delay := w.retryDelay * time.Duration(1<<(job.Attempts-1))
	job.ProcessAt = w.now().Add(delay)

	return schedule(ctx, w.client, w.queue, job)
}

func (w *Worker) moveToDeadQueue(ctx context.Context, job *Job, jobErr error) error {
	w.deadLettered.Add(1)
	deadJobData, err := json.Marshal(DeadJob{Job: job, Error: jobErr.Error(), FailedAt: w.now()})
	if err != nil {
		return fmt.Errorf("failed to marshal dead job: %w", err)
	}

	return w.client.RPush(ctx, deadKey(w.queue), deadJobData).Err()
}

// Stats feeds the monitoring registry.
func (w *Worker) Stats() interface{} {
	return map[string]int64{
		"processed":     w.processed.Load(),
		"failed":        w.failed.Load(),
		"dead_lettered": w.deadLettered.Load(),
	}
}

func schedule(ctx context.Context, client *redis.Client, queue string, job *Job) error {
	jobData, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	return client.ZAdd(ctx, scheduledKey(queue), redis.Z{
		Score:  float64(job.ProcessAt.UnixMilli()),
		Member: jobData,
	}).Err()
}

type JobQueue struct {
	client   *redis.Client
	queue    string
	maxTries int
}

func NewJobQueue(client *redis.Client, queue string, maxTries int) *JobQueue {
	if queue == "" {
		queue = string(JobTypeEvidenceCleanup)
	}
	if maxTries < 1 {
		maxTries = 3
	}
	return &JobQueue{client: client, queue: queue, maxTries: maxTries}
}

func (q *JobQueue) Enqueue(ctx context.Context, jobType JobType, payload map[string]interface{}) error {
	return q.EnqueueAt(ctx, jobType, payload, time.Time{})
}

// EnqueueAt pushes a job for immediate work, or schedules it when processAt
// lies in the future.
func (q *JobQueue) EnqueueAt(ctx context.Context, jobType JobType, payload map[string]interface{}, processAt time.Time) error {
	id, err := uuid.NewV4()
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	job := &Job{
		ID:        id.String(),
		Type:      jobType,
		Payload:   payload,
		Attempts:  0,
		MaxTries:  q.maxTries,
		CreatedAt: now,
		ProcessAt: processAt,
	}

	if processAt.After(now) {
		return schedule(ctx, q.client, q.queue, job)
	}

	jobData, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	return q.client.RPush(ctx, q.queue, jobData).Err()
}

func (q *JobQueue) GetQueueSize(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.queue).Result()
}

func (q *JobQueue) GetDeadQueueSize(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, deadKey(q.queue)).Result()
}
