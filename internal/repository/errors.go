package repository

import "errors"

// ErrInstanceNotFound is returned by AssignedTargets when queried with a
// FlaskID that was never registered via NewFlask.
var ErrInstanceNotFound = errors.New("repository: instance not found")
