package audit

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sokonihq/sokoni-backend/pkg/db/models"
	pkgerrors "github.com/sokonihq/sokoni-backend/pkg/errors"
)

// Recorder appends audit rows for sensitive admin actions. Entries are
// written inside the caller's transaction so an audit row never exists
// for a change that rolled back.
type Recorder interface {
	Record(ctx context.Context, tx *gorm.DB, entry Entry) error
}

// Entry is one audit event.
type Entry struct {
	ActorUserID uuid.UUID
	Action      string
	EntityType  string
	EntityID    uuid.UUID
	Detail      any
}

type recorder struct{}

// NewRecorder returns the database-backed audit recorder.
func NewRecorder() Recorder {
	return recorder{}
}

func (recorder) Record(ctx context.Context, tx *gorm.DB, entry Entry) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for audit record")
	}
	if entry.ActorUserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "audit actor required")
	}
	if entry.Action == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "audit action required")
	}

	var detail json.RawMessage
	if entry.Detail != nil {
		payload, err := json.Marshal(entry.Detail)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal audit detail")
		}
		detail = payload
	}

	row := &models.AuditLog{
		ActorUserID: entry.ActorUserID,
		Action:      entry.Action,
		EntityType:  entry.EntityType,
		EntityID:    entry.EntityID,
		Detail:      detail,
	}
	if err := tx.WithContext(ctx).Create(row).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write audit log")
	}
	return nil
}
