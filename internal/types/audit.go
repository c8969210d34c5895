package types

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrAuditImmutable is returned by the GORM hooks when anything tries to
// change or delete an audit entry. The trail is append-only (GoBD).
var ErrAuditImmutable = errors.New("audit entries cannot be modified or deleted")

// Audit action types.
const (
	AuditActionInsert = "INSERT"
	AuditActionUpdate = "UPDATE"
	AuditActionDelete = "DELETE"
)

// AccountingAudit is one append-only entry in the compliance trail: which
// row changed, how, by whom, and the before/after snapshots.
type AccountingAudit struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	AuditedTable string `gorm:"column:table_name;not null;index:idx_audit_record" json:"table_name"`
	RecordID  uuid.UUID `gorm:"type:uuid;column:record_id;not null;index:idx_audit_record" json:"record_id"`

	ActionType   string `gorm:"column:action_type;not null" json:"action_type"`
	ActorSubject string `gorm:"column:actor_subject" json:"actor_subject,omitempty"`

	OldValues datatypes.JSON `gorm:"type:jsonb;column:old_values" json:"old_values,omitempty"`
	NewValues datatypes.JSON `gorm:"type:jsonb;column:new_values" json:"new_values,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now();index" json:"created_at"`
}

func (AccountingAudit) TableName() string { return "accounting_audit" }

func (a *AccountingAudit) BeforeUpdate(tx *gorm.DB) error { return ErrAuditImmutable }
func (a *AccountingAudit) BeforeDelete(tx *gorm.DB) error { return ErrAuditImmutable }

type auditActorKey struct{}

// WithAuditActor stamps the authenticated subject on the request context so
// services can attribute the audit entries they write.
func WithAuditActor(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, auditActorKey{}, subject)
}

// AuditActor returns the subject stored by WithAuditActor, or "".
func AuditActor(ctx context.Context) string {
	subject, _ := ctx.Value(auditActorKey{}).(string)
	return subject
}
