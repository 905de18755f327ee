// Package auth defines the opaque authentication boundary the session
// dispatcher calls into when a client sends Connect{room_id, token}.
package auth

import "context"

// UserCapabilities describes what media a user is allowed to publish.
// The source and exact semantics of these flags are a matter for the
// auth callback's implementation; the session dispatcher does not read
// or enforce them.
type UserCapabilities struct {
	Audio       bool
	Video       bool
	ScreenShare bool
}

// UserInformation is what an AuthFn resolves a (room_id, token) pair into.
type UserInformation struct {
	ID           string
	Capabilities UserCapabilities
}

// Fn authenticates a client connecting to a room. It is supplied by an
// upstream collaborator; this package owns only the interface and one
// concrete JWT-based implementation (see jwt.go).
type Fn func(ctx context.Context, roomID, token string) (UserInformation, error)
