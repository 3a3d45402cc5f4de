package worker

import (
	"context"
	"fmt"

	"github.com/estivenmendezr98/TAREAS/internal/logger"
)

// FileRemover deletes evidence files from storage.
type FileRemover interface {
	RemoveFiles(ctx context.Context, paths []string) error
}

// EvidenceCleanupHandler removes the files listed under the "paths" payload key.
func EvidenceCleanupHandler(remover FileRemover) JobHandler {
	return func(ctx context.Context, job *Job) error {
		paths, err := payloadStrings(job.Payload, "paths")
		if err != nil {
			return err
		}
		return remover.RemoveFiles(ctx, paths)
	}
}

// QueueRemover defers file removal to the worker. If the job cannot be
// enqueued the files are removed inline instead.
type QueueRemover struct {
	queue    *JobQueue
	fallback FileRemover
	log      *logger.Logger
}

func NewQueueRemover(queue *JobQueue, fallback FileRemover, log *logger.Logger) *QueueRemover {
	if log == nil {
		log = logger.Default()
	}
	return &QueueRemover{queue: queue, fallback: fallback, log: log}
}

func (r *QueueRemover) RemoveFiles(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	err := r.queue.Enqueue(ctx, JobTypeEvidenceCleanup, map[string]interface{}{"paths": paths})
	if err == nil {
		return nil
	}
	if r.fallback == nil {
		return fmt.Errorf("enqueue evidence cleanup: %w", err)
	}
	r.log.Warn("evidence cleanup queue unavailable, removing inline", logger.Err(err))
	return r.fallback.RemoveFiles(ctx, paths)
}

// payloadStrings reads a string list back out of a JSON-decoded payload.
func payloadStrings(payload map[string]interface{}, key string) ([]string, error) {
	raw, ok := payload[key]
	if !ok {
		return nil, fmt.Errorf("payload missing %q", key)
	}
	switch v := raw.(type) {
	case []string:
		return v, nil
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("payload %q holds %T, want string", key, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("payload %q holds %T, want list", key, raw)
	}
}
