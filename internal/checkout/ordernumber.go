package checkout

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Order numbers look like ORD-20260829-7F3A2C1B. The date component keeps
// them roughly sortable for humans; uniqueness itself comes from the
// storage-level unique index, with the engine retrying on collision.
const maxOrderNumberAttempts = 3

func newOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), suffix)
}
