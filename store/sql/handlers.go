package sqlstore

import (
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

func idTokenHandlers() repository.ModelHandlers[*idTokenRecord] {
	return repository.ModelHandlers[*idTokenRecord]{
		NewRecord: func() *idTokenRecord {
			return &idTokenRecord{}
		},
		GetID: func(record *idTokenRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *idTokenRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "token_checksum"
		},
		GetIdentifierValue: func(record *idTokenRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.TokenChecksum)
		},
	}
}

func parseUUID(value string) uuid.UUID {
	parsed, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil
	}
	return parsed
}
