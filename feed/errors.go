package feed

import (
	"github.com/pingcap/errors"
)

// ErrNoSuchItem is returned when the anchor or target id of a conditional
// mutation is not in the feed. The mutation is not attempted and no
// notification is emitted.
var ErrNoSuchItem = errors.New("feed: no such item")

// ErrTooManyConflicts is returned when a retry policy with a cap exhausts
// its attempts without committing. The feed is left unchanged.
var ErrTooManyConflicts = errors.New("feed: too many write conflicts")

func IsNoSuchItem(err error) bool {
	return errors.Cause(err) == ErrNoSuchItem
}

func IsTooManyConflicts(err error) bool {
	return errors.Cause(err) == ErrTooManyConflicts
}
