package store

import (
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// pgText converts a string to pgtype.Text.
// Empty or whitespace-only strings become SQL NULL.
func pgText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

// pgUUID converts an optional id to pgtype.UUID.
func pgUUID(id uuid.NullUUID) pgtype.UUID {
	if !id.Valid {
		return pgtype.UUID{Valid: false}
	}
	return pgtype.UUID{Bytes: id.UUID, Valid: true}
}

// nullUUID converts a scanned pgtype.UUID back to uuid.NullUUID.
func nullUUID(u pgtype.UUID) uuid.NullUUID {
	if !u.Valid {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(u.Bytes), Valid: true}
}
