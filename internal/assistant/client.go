// Package assistant is the seam to the AI chat collaborator. The platform
// treats it as a stateless request/response dependency; only the interface
// and a canned stub live here.
package assistant

import "context"

// Client answers one patient message with one assistant reply.
type Client interface {
	Reply(ctx context.Context, message string) (string, error)
}

// Stub returns a fixed hand-off reply, used when no upstream assistant is
// configured.
type Stub struct{}

// Reply implements Client.
func (Stub) Reply(_ context.Context, _ string) (string, error) {
	return "I'm not available right now. Please use the clinic directory to find care near you.", nil
}

var _ Client = Stub{}
