package lottery

import "errors"

// Failure taxonomy of the betting core. Validation and state-conflict errors
// are reported to the caller with nothing written; anything else is an
// infrastructure failure and is wrapped at the call site.
var (
	// Bet admission
	ErrNoGames          = errors.New("no games submitted")
	ErrNumberOutOfRange = errors.New("numbers must be between 1 and 60")
	ErrGameTooShort     = errors.New("a game needs at least 6 numbers")
	ErrGameTooLong      = errors.New("a game exceeds the contest number limit")
	ErrDuplicateNumbers = errors.New("a game contains repeated numbers")
	ErrContestNotFound  = errors.New("contest not found")
	ErrContestClosed    = errors.New("contest is closed for betting")

	// Contest lifecycle
	ErrDuplicateContest  = errors.New("contest number already exists")
	ErrInvalidMaxNumbers = errors.New("maxNumbers must be between 6 and 60")
	ErrOpenContestExists = errors.New("another contest is still open")
	ErrNoOpenContest     = errors.New("no open contest")
	ErrContestNotDrawn   = errors.New("contest has not been drawn")
)
