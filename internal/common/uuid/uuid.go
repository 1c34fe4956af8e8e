// Package uuid issues player identifiers. The generator sits behind an
// interface so tests can hand out predictable ids.
package uuid

import "github.com/google/uuid"

//go:generate mockgen -package=mocks -destination=mocks/mock_uuid.go github.com/Seednode/bingohall/internal/common/uuid UUID

// UUID produces player identifiers
type UUID interface {
	NewUUID() string
}

// DefaultUUID issues random version 4 UUIDs
type DefaultUUID struct{}

func New() *DefaultUUID {
	return &DefaultUUID{}
}

func (d *DefaultUUID) NewUUID() string {
	return uuid.NewString()
}

// Valid reports whether id is a well-formed UUID. Ids arriving from cookies
// are checked with it before they are trusted as a player identity.
func Valid(id string) bool {
	return uuid.Validate(id) == nil
}
