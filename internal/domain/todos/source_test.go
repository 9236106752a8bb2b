package todos

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepository struct {
	todos []Todo
	err   error
	limit int
}

func (f *fakeRepository) FindOpen(_ context.Context, limit int) ([]Todo, error) {
	f.limit = limit
	return f.todos, f.err
}

func TestOpenTasksOrdering(t *testing.T) {
	due := time.Date(2025, 5, 1, 17, 0, 0, 0, time.UTC)
	later := due.Add(24 * time.Hour)

	repo := &fakeRepository{todos: []Todo{
		{ID: uuid.New(), Title: "undated high", Priority: PriorityHigh},
		{ID: uuid.New(), Title: "later", Priority: PriorityHigh, DueDate: &later},
		{ID: uuid.New(), Title: "due low", Priority: PriorityLow, DueDate: &due},
		{ID: uuid.New(), Title: "due high", Priority: PriorityHigh, DueDate: &due},
		{ID: uuid.New(), Title: "undated low", Priority: PriorityLow},
	}}

	tasks, err := NewSource(repo).OpenTasks(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 10, repo.limit)

	titles := make([]string, 0, len(tasks))
	for _, task := range tasks {
		titles = append(titles, task.Title)
	}
	assert.Equal(t, []string{"due high", "due low", "later", "undated high", "undated low"}, titles)
	assert.Equal(t, &due, tasks[0].Due)
}

func TestOpenTasksError(t *testing.T) {
	_, err := NewSource(&fakeRepository{err: errors.New("boom")}).OpenTasks(context.Background(), 5)
	assert.ErrorContains(t, err, "boom")
}
