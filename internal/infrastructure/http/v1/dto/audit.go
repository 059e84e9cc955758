package dto

import (
	"encoding/json"
	"time"

	"carat/internal/infrastructure/storage/postgres"
)

// AuditEntryResponse is one recorded request snapshot.
type AuditEntryResponse struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	RefID     string          `json:"refId"`
	ActorID   string          `json:"actorId"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"createdAt"`
}

// FromAuditEntry converts a stored audit entry to response DTO.
// Entries come back decompressed, so Payload is always plain JSON here.
func FromAuditEntry(e postgres.AuditEntry) AuditEntryResponse {
	return AuditEntryResponse{
		ID:        e.ID.String(),
		Kind:      e.Kind,
		RefID:     e.RefID.String(),
		ActorID:   e.ActorID,
		Payload:   e.Payload,
		CreatedAt: e.CreatedAt,
	}
}
