package storage

import "errors"

var (
	// ErrProjectNotFound is returned when no project matches the given id or
	// secret key.
	ErrProjectNotFound = errors.New("project not found")
	// ErrItemNotFound is returned when an item id does not exist within the
	// addressed project.
	ErrItemNotFound = errors.New("item not found")
	// ErrSecretInUse is returned when a new project's secret key collides
	// with an existing project.
	ErrSecretInUse = errors.New("secret key already in use")
)
