// Package storage provides the durable key-value store backing the
// expense collection and the export hub, plus the persistence gateway
// and the expense repository built on top of it.
//
// Every namespace holds one JSON document; writes always replace the
// whole document. There is no versioning or migration scheme for the
// payloads themselves: a malformed document is treated as absent.
package storage

import "context"

// KV is the durable key-value contract shared by all backends. Get
// reports ok=false when the namespace holds no data.
type KV interface {
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	Set(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Fixed namespace keys. The expense collection lives under a single
// key; the export hub owns the remaining namespaces.
const (
	KeyExpenses     = "expense-tracker-data"
	KeyIntegrations = "expense-tracker-integrations"
	KeyHistory      = "expense-tracker-export-history"
	KeySchedules    = "expense-tracker-scheduled-exports"
	KeyShares       = "expense-tracker-shares"
)
