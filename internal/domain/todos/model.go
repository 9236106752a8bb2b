package todos

import (
	"time"

	"github.com/google/uuid"
)

// TodoPriority represents the priority level of a todo
type TodoPriority string

const (
	PriorityHigh   TodoPriority = "high"
	PriorityMedium TodoPriority = "medium"
	PriorityLow    TodoPriority = "low"
)

// TodoStatus represents the status of a todo
type TodoStatus string

const (
	StatusPending    TodoStatus = "pending"
	StatusInProgress TodoStatus = "in_progress"
	StatusArchived   TodoStatus = "archived"
)

// Todo is a single to-do item
type Todo struct {
	ID             uuid.UUID    `gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	Title          string       `gorm:"size:255;not null"`
	Description    string       `gorm:"type:text"`
	Status         TodoStatus   `gorm:"type:varchar(20);not null;default:'pending';index"`
	Priority       TodoPriority `gorm:"type:varchar(20);not null;default:'medium';index"`
	IsCompleted    bool         `gorm:"not null;default:false;index"`
	CompletionDate *time.Time
	DueDate        *time.Time `gorm:"index"`
	CreatedAt      time.Time  `gorm:"not null;default:current_timestamp;index"`
	UpdatedAt      time.Time  `gorm:"not null;default:current_timestamp;autoUpdateTime"`
}

// rank orders priorities high first
func (p TodoPriority) rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

func (Todo) TableName() string {
	return "todos"
}
