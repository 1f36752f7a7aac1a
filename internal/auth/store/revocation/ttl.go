package revocation

import (
	"fmt"
	"time"

	"medgate/pkg/platform/sentinel"
)

// Clock returns the current time.
type Clock func() time.Time

// shouldRecord reports whether a revocation of jti for ttl needs storing.
// Tokens without a jti cannot be looked up, so there is nothing to record.
func shouldRecord(jti string, ttl time.Duration) (bool, error) {
	if jti == "" {
		return false, nil
	}
	if ttl <= 0 {
		return false, fmt.Errorf("revoke %s: ttl %s must be positive: %w", jti, ttl, sentinel.ErrInvalidState)
	}
	return true, nil
}
