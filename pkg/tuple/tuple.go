package tuple

import "github.com/google/uuid"

// ID is the provenance identity of a tuple. It is allocated once, when the
// tuple is created at an event source, and survives every downstream Map.
// Removal events are paired with their originating addition by ID, never by
// value equality.
type ID = uuid.UUID

// Tuple carries a value together with its provenance identity.
type Tuple[T any] struct {
	ID    ID
	Value T
}

// New creates a tuple for a freshly observed value with a fresh identity.
// Two tuples created from equal values still have distinct identities.
func New[T any](value T) Tuple[T] {
	return Tuple[T]{ID: uuid.New(), Value: value}
}

// Map derives a tuple with the transformed value and the same identity.
func Map[T, S any](t Tuple[T], f func(T) S) Tuple[S] {
	return Tuple[S]{ID: t.ID, Value: f(t.Value)}
}
