package storage

import "errors"

var (
	// ErrNoActiveSession is returned when a set is logged without an in-progress session.
	ErrNoActiveSession = errors.New("no active workout session")
	// ErrExerciseNotFound is returned when no library exercise matches a name.
	ErrExerciseNotFound = errors.New("exercise not found")
	// ErrNoProfile is returned when the user has not set up a profile.
	ErrNoProfile = errors.New("no profile")
	// ErrInvalidLandmark is returned for landmarks violating mev <= mav <= mrv.
	ErrInvalidLandmark = errors.New("invalid volume landmark")
)
