package chunk

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Response-id prefixes, per spec.md §4.5 step 1 and original_source's
// response_id format recovery (flat_task_profile.rs): {prefix}-{uuidv4
// with dashes stripped}-{epoch_seconds}.
const (
	PrefixChatCompletion   = "chtcpl"
	PrefixVectorCompletion = "vctcpl"
	PrefixScalarFunction   = "sclfnc"
	PrefixVectorFunction   = "vctfnc"
)

// NewResponseID generates a {prefix}-{uuidv4-simple}-{epoch} identifier.
func NewResponseID(prefix string) string {
	simple := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%s-%s-%d", prefix, simple, time.Now().Unix())
}
