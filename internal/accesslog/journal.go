package accesslog

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Entry is one audit journal record. Entries mirror the actions users take on
// emission data so that a DPO can reconstruct who touched what and when.
type Entry struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	Action       string    `gorm:"size:64" json:"action"`
	ResourceType string    `gorm:"size:64" json:"resource_type"`
	ResourceID   string    `gorm:"size:64" json:"resource_id"`
	Detail       string    `json:"detail,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName overrides the default gorm naming.
func (Entry) TableName() string { return "access_logs" }

// Journal records actions fire-and-forget: a failed or slow write must never
// block the operation being journaled.
type Journal interface {
	Record(entry Entry)
}

// AsyncJournal buffers entries in a channel and persists them from a single
// background goroutine. When the buffer is full the entry is dropped and the
// drop is logged; audit writes are best-effort by contract.
type AsyncJournal struct {
	db     *gorm.DB
	logger *zap.Logger
	queue  chan Entry
	done   chan struct{}
}

// NewAsyncJournal creates a journal with the given buffer size and starts its
// writer goroutine.
func NewAsyncJournal(db *gorm.DB, logger *zap.Logger, buffer int) *AsyncJournal {
	if buffer <= 0 {
		buffer = 256
	}
	j := &AsyncJournal{
		db:     db,
		logger: logger,
		queue:  make(chan Entry, buffer),
		done:   make(chan struct{}),
	}
	go j.drain()
	return j
}

// Record queues an entry without blocking.
func (j *AsyncJournal) Record(entry Entry) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	select {
	case j.queue <- entry:
	default:
		j.logger.Warn("access log buffer full, dropping entry",
			zap.String("action", entry.Action),
			zap.String("resource_type", entry.ResourceType))
	}
}

// Close stops the writer after flushing queued entries.
func (j *AsyncJournal) Close() {
	close(j.queue)
	<-j.done
}

func (j *AsyncJournal) drain() {
	defer close(j.done)
	for entry := range j.queue {
		if err := j.db.Create(&entry).Error; err != nil {
			j.logger.Warn("failed to persist access log entry",
				zap.String("action", entry.Action),
				zap.Error(err))
		}
	}
}

// Noop is a Journal that discards everything. Used in tests and in tools that
// run outside a request context.
type Noop struct{}

// Record implements Journal.
func (Noop) Record(Entry) {}
