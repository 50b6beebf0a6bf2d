package redis

import "strings"

const (
	namespace         = "storefront"
	idempotencyPrefix = "idem"
	rateLimitPrefix   = "ratelimit"
	lockPrefix        = "lock"
)

// Key joins non-empty parts under the storefront namespace.
func Key(parts ...string) string {
	joined := []string{namespace}
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			joined = append(joined, part)
		}
	}
	return strings.Join(joined, ":")
}

func (c *Client) IdempotencyKey(scope, id string) string {
	return Key(idempotencyPrefix, scope, id)
}

func (c *Client) RateLimitKey(scope string) string {
	return Key(rateLimitPrefix, scope)
}

func (c *Client) LockKey(name string) string {
	return Key(lockPrefix, name)
}
