package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/punchcard/backend/internal/model"
)

// EnqueueTask appends a pending side-effect task to the outbox.
func (r *Repository) EnqueueTask(ctx context.Context, taskType model.OutboxTaskType, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal task payload: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO outbox_tasks (task_type, payload)
		VALUES ($1, $2)`, taskType, data)
	return err
}

// ListPendingTasks returns the oldest pending tasks. A single worker
// consumes the queue, so no claim/lock step is needed.
func (r *Repository) ListPendingTasks(ctx context.Context, limit int) ([]model.OutboxTask, error) {
	var tasks []model.OutboxTask
	err := r.db.SelectContext(ctx, &tasks, `
		SELECT * FROM outbox_tasks
		WHERE status = 'pending'
		ORDER BY created_at
		LIMIT $1`, limit)
	return tasks, err
}

// MarkTaskDone finalizes a task.
func (r *Repository) MarkTaskDone(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE outbox_tasks SET status = 'done', processed_at = NOW()
		WHERE id = $1`, id)
	return err
}

// MarkTaskFailed records a failed attempt; the task stays pending until
// maxAttempts is exhausted, then is parked as failed.
func (r *Repository) MarkTaskFailed(ctx context.Context, id uuid.UUID, taskErr string, maxAttempts int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE outbox_tasks SET
			attempts = attempts + 1,
			last_error = $2,
			status = CASE WHEN attempts + 1 >= $3 THEN 'failed' ELSE 'pending' END,
			processed_at = NOW()
		WHERE id = $1`, id, taskErr, maxAttempts)
	return err
}
