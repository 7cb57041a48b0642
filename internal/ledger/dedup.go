package ledger

import (
	"strings"
	"time"

	"github.com/angelmondragon/artvault-backend/pkg/enums"
)

// DedupKey builds the natural idempotency key of a recorder: the collector,
// the transaction type and the correlating ids, joined with ':'.
func DedupKey(identifier string, txType enums.TransactionType, parts ...string) string {
	segments := make([]string, 0, len(parts)+2)
	segments = append(segments, strings.TrimSpace(identifier), string(txType))
	for _, p := range parts {
		segments = append(segments, strings.TrimSpace(p))
	}
	return strings.Join(segments, ":")
}

// DayKey truncates t to its UTC calendar day for once-per-day keys.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
