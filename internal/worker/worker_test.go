package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/estivenmendezr98/TAREAS/internal/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRemover struct {
	mu    sync.Mutex
	calls [][]string
	err   error
}

func (r *recordingRemover) RemoveFiles(_ context.Context, paths []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, append([]string{}, paths...))
	return r.err
}

func (r *recordingRemover) Calls() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string{}, r.calls...)
}

func setup(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func newTestWorker(client *redis.Client) *Worker {
	return NewWorker(WorkerConfig{
		RedisClient: client,
		Queue:       "cleanup",
		RetryDelay:  time.Minute,
		PollTimeout: 50 * time.Millisecond,
		Logger:      logger.Discard(),
	})
}

func TestQueueRemover_EnqueuesCleanupJob(t *testing.T) {
	_, client := setup(t)
	queue := NewJobQueue(client, "cleanup", 3)
	remover := NewQueueRemover(queue, nil, logger.Discard())

	require.NoError(t, remover.RemoveFiles(context.Background(), []string{"a.png", "b.pdf"}))

	size, err := queue.GetQueueSize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), size)

	raw, err := client.LIndex(context.Background(), "cleanup", 0).Result()
	require.NoError(t, err)
	var job Job
	require.NoError(t, json.Unmarshal([]byte(raw), &job))
	assert.Equal(t, JobTypeEvidenceCleanup, job.Type)
	assert.Equal(t, 3, job.MaxTries)
	assert.NotEmpty(t, job.ID)
}

func TestQueueRemover_EmptyListIsNoop(t *testing.T) {
	_, client := setup(t)
	queue := NewJobQueue(client, "cleanup", 3)

	require.NoError(t, NewQueueRemover(queue, nil, logger.Discard()).RemoveFiles(context.Background(), nil))
	size, _ := queue.GetQueueSize(context.Background())
	assert.Zero(t, size)
}

func TestQueueRemover_FallsBackWhenRedisIsDown(t *testing.T) {
	mr, client := setup(t)
	fallback := &recordingRemover{}
	remover := NewQueueRemover(NewJobQueue(client, "cleanup", 3), fallback, logger.Discard())
	mr.Close()

	require.NoError(t, remover.RemoveFiles(context.Background(), []string{"a.png"}))
	assert.Equal(t, [][]string{{"a.png"}}, fallback.Calls())
}

func TestWorker_RunsCleanupJob(t *testing.T) {
	_, client := setup(t)
	files := &recordingRemover{}
	w := newTestWorker(client)
	w.RegisterHandler(JobTypeEvidenceCleanup, EvidenceCleanupHandler(files))

	queue := NewJobQueue(client, "cleanup", 3)
	require.NoError(t, queue.Enqueue(context.Background(), JobTypeEvidenceCleanup,
		map[string]interface{}{"paths": []string{"x.png"}}))

	require.NoError(t, w.processNextJob(context.Background()))
	assert.Equal(t, [][]string{{"x.png"}}, files.Calls())
	assert.Equal(t, map[string]int64{"processed": 1, "failed": 0, "dead_lettered": 0}, w.Stats())
}

func TestWorker_RetriesWithBackoffThenDeadLetters(t *testing.T) {
	_, client := setup(t)
	ctx := context.Background()
	files := &recordingRemover{err: errors.New("disk unavailable")}
	w := newTestWorker(client)
	w.RegisterHandler(JobTypeEvidenceCleanup, EvidenceCleanupHandler(files))

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return now }

	queue := NewJobQueue(client, "cleanup", 2)
	require.NoError(t, queue.Enqueue(ctx, JobTypeEvidenceCleanup,
		map[string]interface{}{"paths": []string{"x.png"}}))

	// First failure: scheduled one retry delay out.
	require.NoError(t, w.processNextJob(ctx))
	scheduled, err := client.ZRangeWithScores(ctx, "cleanup:scheduled", 0, -1).Result()
	require.NoError(t, err)
	require.Len(t, scheduled, 1)
	assert.Equal(t, float64(now.Add(time.Minute).UnixMilli()), scheduled[0].Score)

	// Not yet due.
	moved, err := w.promoteDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, moved)

	now = now.Add(2 * time.Minute)
	require.NoError(t, w.processNextJob(ctx))

	dead, err := queue.GetDeadQueueSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), dead)
	assert.Len(t, files.Calls(), 2)

	raw, err := client.LIndex(ctx, "cleanup:dead", 0).Result()
	require.NoError(t, err)
	var deadJob DeadJob
	require.NoError(t, json.Unmarshal([]byte(raw), &deadJob))
	assert.Equal(t, "disk unavailable", deadJob.Error)
	assert.Equal(t, 2, deadJob.Job.Attempts)
}

func TestWorker_UnknownJobTypeIsDeadLettered(t *testing.T) {
	_, client := setup(t)
	ctx := context.Background()
	w := newTestWorker(client)

	queue := NewJobQueue(client, "cleanup", 3)
	require.NoError(t, queue.Enqueue(ctx, JobType("mystery"), nil))
	require.NoError(t, w.processNextJob(ctx))

	dead, _ := queue.GetDeadQueueSize(ctx)
	assert.Equal(t, int64(1), dead)
}

func TestWorker_EmptyQueueReturnsQuietly(t *testing.T) {
	_, client := setup(t)
	assert.NoError(t, newTestWorker(client).processNextJob(context.Background()))
}

func TestEnqueueAt_FutureJobIsScheduled(t *testing.T) {
	_, client := setup(t)
	ctx := context.Background()
	queue := NewJobQueue(client, "cleanup", 3)

	require.NoError(t, queue.EnqueueAt(ctx, JobTypeEvidenceCleanup,
		map[string]interface{}{"paths": []string{"later.png"}}, time.Now().Add(time.Hour)))

	size, _ := queue.GetQueueSize(ctx)
	assert.Zero(t, size)
	count, err := client.ZCard(ctx, "cleanup:scheduled").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestWorker_StartAndStop(t *testing.T) {
	_, client := setup(t)
	files := &recordingRemover{}
	w := newTestWorker(client)
	w.RegisterHandler(JobTypeEvidenceCleanup, EvidenceCleanupHandler(files))
	w.Start(2)

	queue := NewJobQueue(client, "cleanup", 3)
	require.NoError(t, queue.Enqueue(context.Background(), JobTypeEvidenceCleanup,
		map[string]interface{}{"paths": []string{"bg.png"}}))

	assert.Eventually(t, func() bool { return len(files.Calls()) == 1 }, 2*time.Second, 20*time.Millisecond)
	w.Stop()
}

func TestPayloadStrings(t *testing.T) {
	_, err := payloadStrings(map[string]interface{}{}, "paths")
	assert.Error(t, err)
	_, err = payloadStrings(map[string]interface{}{"paths": []interface{}{1}}, "paths")
	assert.Error(t, err)
	got, err := payloadStrings(map[string]interface{}{"paths": []interface{}{"a", "b"}}, "paths")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)
}
