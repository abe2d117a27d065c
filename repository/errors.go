package repository

import "errors"

// ErrNotFound is returned by Get-style methods when the row does not exist.
// Sub-stores wrap this with the entity and key for context via fmt.Errorf's
// %w verb, so callers can still errors.Is(err, repository.ErrNotFound).
var ErrNotFound = errors.New("repository: not found")

// ErrAlreadyExists is returned when a unique constraint would be violated
// (duplicate email, duplicate room name, duplicate membership).
var ErrAlreadyExists = errors.New("repository: already exists")
