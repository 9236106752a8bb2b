package notification

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/angelonej/daily-planner-agent-sub000/internal/infrastructure/persistence/postgres/connection"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// postgresRepository implements the Repository interface for PostgreSQL
type postgresRepository struct {
	db     *connection.Database
	logger *logrus.Logger
}

// NewRepository creates a new PostgreSQL push registration repository
func NewRepository(db *connection.Database, logger *logrus.Logger) Repository {
	return &postgresRepository{
		db:     db,
		logger: logger,
	}
}

// withRecovery executes fn and retries once after reconnecting on connection errors
func (r *postgresRepository) withRecovery(ctx context.Context, operation string, fn func(tx *gorm.DB) error) error {
	err := fn(r.db.WithContext(ctx))
	if err == nil {
		return nil
	}

	r.logger.WithError(err).WithField("operation", operation).Error("Database operation failed")
	if !isConnectionError(err) {
		return err
	}

	r.logger.WithField("operation", operation).Warn("Database connection error, attempting reconnection")
	if reconnectErr := r.db.Reconnect(); reconnectErr != nil {
		r.logger.WithError(reconnectErr).Error("Failed to reconnect to database")
		return err
	}
	return fn(r.db.WithContext(ctx))
}

func isConnectionError(err error) bool {
	msg := err.Error()
	for _, marker := range []string{
		"connection refused",
		"bad connection",
		"connection reset by peer",
		"broken pipe",
		"connection closed",
		"hostname resolving error",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// Save upserts a registration keyed on its endpoint
func (r *postgresRepository) Save(ctx context.Context, reg *PushRegistration) error {
	reg.UpdatedAt = time.Now()
	return r.withRecovery(ctx, "Save", func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth", "user_agent", "updated_at"}),
		}).Create(reg).Error
	})
}

// List returns every registration, oldest first
func (r *postgresRepository) List(ctx context.Context) ([]*PushRegistration, error) {
	var regs []*PushRegistration
	err := r.withRecovery(ctx, "List", func(tx *gorm.DB) error {
		return tx.Order("created_at ASC").Find(&regs).Error
	})
	if err != nil {
		return nil, err
	}
	return regs, nil
}

// Delete removes a registration by id
func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.withRecovery(ctx, "Delete", func(tx *gorm.DB) error {
		result := tx.Delete(&PushRegistration{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrRegistrationNotFound
		}
		return nil
	})
}

// DeleteByEndpoint removes a registration by its push endpoint
func (r *postgresRepository) DeleteByEndpoint(ctx context.Context, endpoint string) error {
	return r.withRecovery(ctx, "DeleteByEndpoint", func(tx *gorm.DB) error {
		result := tx.Where("endpoint = ?", endpoint).Delete(&PushRegistration{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrRegistrationNotFound
		}
		return nil
	})
}

// memoryRepository keeps registrations in process memory when no database is configured
type memoryRepository struct {
	mu   sync.RWMutex
	regs map[uuid.UUID]*PushRegistration
}

// NewMemoryRepository creates an in-memory push registration repository
func NewMemoryRepository() Repository {
	return &memoryRepository{regs: make(map[uuid.UUID]*PushRegistration)}
}

func (r *memoryRepository) Save(_ context.Context, reg *PushRegistration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.regs {
		if existing.Endpoint == reg.Endpoint {
			existing.P256dh = reg.P256dh
			existing.Auth = reg.Auth
			existing.UserAgent = reg.UserAgent
			existing.UpdatedAt = time.Now()
			*reg = *existing
			return nil
		}
	}
	if err := reg.BeforeCreate(nil); err != nil {
		return err
	}
	stored := *reg
	r.regs[reg.ID] = &stored
	return nil
}

func (r *memoryRepository) List(context.Context) ([]*PushRegistration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	regs := make([]*PushRegistration, 0, len(r.regs))
	for _, reg := range r.regs {
		copied := *reg
		regs = append(regs, &copied)
	}
	sort.Slice(regs, func(i, j int) bool {
		return regs[i].CreatedAt.Before(regs[j].CreatedAt)
	})
	return regs, nil
}

func (r *memoryRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.regs[id]; !ok {
		return ErrRegistrationNotFound
	}
	delete(r.regs, id)
	return nil
}

func (r *memoryRepository) DeleteByEndpoint(_ context.Context, endpoint string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, reg := range r.regs {
		if reg.Endpoint == endpoint {
			delete(r.regs, id)
			return nil
		}
	}
	return ErrRegistrationNotFound
}
