package xid

import "github.com/google/uuid"

// New returns a prefixed random identifier such as "sale-3f2a...".
func New(prefix string) string {
	if prefix == "" {
		return uuid.NewString()
	}
	return prefix + "-" + uuid.NewString()
}
