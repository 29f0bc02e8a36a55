package identity

import "errors"

// ErrInvalidArgument marks a precondition violation: a nil entity, a zero
// identifier or a blank name. These are caller bugs, never business failures,
// and are returned immediately without touching the store.
var ErrInvalidArgument = errors.New("identity: invalid argument")

// ErrRoleNotFound is returned when a role name cannot be resolved for the
// configured application during a role-membership mutation.
var ErrRoleNotFound = errors.New("identity: role not found")

// ErrDuplicateName wraps the datastore's unique-constraint violation on a
// normalized user or role name.
var ErrDuplicateName = errors.New("identity: duplicate normalized name")
