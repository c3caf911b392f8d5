package id

import (
	"github.com/gofrs/uuid"
)

// GenTraceID new random trace id of a ledger call
func GenTraceID() string {
	return uuid.Must(uuid.NewV4()).String()
}
