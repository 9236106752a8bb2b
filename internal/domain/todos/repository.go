package todos

import (
	"context"

	"github.com/angelonej/daily-planner-agent-sub000/internal/infrastructure/persistence/postgres/connection"
)

type TodoRepository interface {
	// FindOpen returns uncompleted, non-archived todos, soonest due first
	FindOpen(ctx context.Context, limit int) ([]Todo, error)
}

type todoRepository struct {
	db *connection.Database
}

func NewTodoRepository(db *connection.Database) TodoRepository {
	return &todoRepository{db: db}
}

func (r *todoRepository) FindOpen(ctx context.Context, limit int) ([]Todo, error) {
	var todos []Todo
	query := r.db.WithContext(ctx).
		Where("is_completed = ?", false).
		Where("status <> ?", StatusArchived).
		Order("due_date ASC NULLS LAST").
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&todos).Error; err != nil {
		return nil, err
	}
	return todos, nil
}
