// Package dvote implements the client-side orchestration layer for a single
// election hosted on an external, authoritative ledger. The ledger enforces
// the business rules at write time; the packages in this module mirror its
// state locally, drive mutations through a simulate-before-commit pipeline
// and translate the ledger's opaque failures into a typed taxonomy.
package dvote

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

var logout = zerolog.ConsoleWriter{
	Out:        os.Stdout,
	TimeFormat: time.RFC3339,
}

// Logger is a globally available logger instance.
var Logger = zerolog.New(logout).
	With().Timestamp().Logger().
	With().Caller().Logger().
	Level(zerolog.InfoLevel)
