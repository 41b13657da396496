package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"jogosescolares/internal/database"

	"github.com/google/uuid"
)

type AuditLogEventType string

const (
	AuditLogEventTypeUserCreate          AuditLogEventType = "user.create"
	AuditLogEventTypeUserLogin           AuditLogEventType = "user.login"
	AuditLogEventTypeEventCreate         AuditLogEventType = "event.create"
	AuditLogEventTypeEventUpdate         AuditLogEventType = "event.update"
	AuditLogEventTypeEventStatusChange   AuditLogEventType = "event.status_change"
	AuditLogEventTypeEventModalities     AuditLogEventType = "event.modalities"
	AuditLogEventTypeSchoolRegistered    AuditLogEventType = "school.registered"
	AuditLogEventTypeSchoolMerged        AuditLogEventType = "school.merged"
	AuditLogEventTypeSchoolLinked        AuditLogEventType = "school.linked"
	AuditLogEventTypeInscriptionCreate   AuditLogEventType = "inscription.create"
	AuditLogEventTypeInscriptionDelete   AuditLogEventType = "inscription.delete"
	AuditLogEventTypeTeamMemberAdd       AuditLogEventType = "team.member_add"
	AuditLogEventTypeTeamMemberUpdate    AuditLogEventType = "team.member_update"
	AuditLogEventTypeTeamMemberRemove    AuditLogEventType = "team.member_remove"
	AuditLogEventTypeParticipantCreate   AuditLogEventType = "participant.create"
	AuditLogEventTypeParticipantDocument AuditLogEventType = "participant.document"
	AuditLogEventTypeModalityCreate      AuditLogEventType = "modality.create"
)

type Auditor struct {
	logger *slog.Logger
}

func NewAuditor(logger *slog.Logger) Auditor {
	return Auditor{logger: logger}
}

type LogEventParam struct {
	ActorID uuid.UUID
	Type    AuditLogEventType
	Data    map[string]any
}

// LogEvent writes through q so the entry commits or rolls back with the
// mutation it describes.
func (a *Auditor) LogEvent(ctx context.Context, q database.Queries, params LogEventParam) error {
	data, err := json.Marshal(params.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal audit log event data: %w", err)
	}

	if _, err = q.CreateAuditLogEvent(ctx, database.CreateAuditLogEventParams{
		ActorID:   params.ActorID,
		EventType: string(params.Type),
		EventData: data,
	}); err != nil {
		return fmt.Errorf("failed to create audit log event: %w", err)
	}

	a.logger.DebugContext(ctx, "Audit event recorded", "type", params.Type, "actor_id", params.ActorID)
	return nil
}
