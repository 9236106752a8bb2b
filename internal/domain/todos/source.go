package todos

import (
	"context"
	"fmt"
	"sort"

	"github.com/angelonej/daily-planner-agent-sub000/internal/domain/briefing"
)

// Source adapts the todo repository to the briefing aggregator
type Source struct {
	repo TodoRepository
}

// NewSource creates a task source
func NewSource(repo TodoRepository) *Source {
	return &Source{repo: repo}
}

// OpenTasks returns up to limit open todos, soonest due first and undated last.
// Ties go to the higher priority.
func (s *Source) OpenTasks(ctx context.Context, limit int) ([]briefing.Task, error) {
	rows, err := s.repo.FindOpen(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("todos: find open: %w", err)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].DueDate, rows[j].DueDate
		switch {
		case a == nil && b == nil:
			return rows[i].Priority.rank() < rows[j].Priority.rank()
		case a == nil:
			return false
		case b == nil:
			return true
		case !a.Equal(*b):
			return a.Before(*b)
		default:
			return rows[i].Priority.rank() < rows[j].Priority.rank()
		}
	})

	tasks := make([]briefing.Task, 0, len(rows))
	for _, row := range rows {
		tasks = append(tasks, briefing.Task{
			ID:        row.ID.String(),
			Title:     row.Title,
			Due:       row.DueDate,
			Completed: row.IsCompleted,
		})
	}
	return tasks, nil
}
