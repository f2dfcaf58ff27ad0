package score

import (
	"errors"
	"fmt"
)

// ScoringError reports a sequence whose metrics cannot be computed.
// Such sequences are excluded from ranking but still reported.
type ScoringError struct {
	SequenceID int64
	Reason     string
}

func (e *ScoringError) Error() string {
	return fmt.Sprintf("cannot score sequence %d: %s", e.SequenceID, e.Reason)
}

// IsScoringError returns true if err is a ScoringError.
func IsScoringError(err error) bool {
	var se *ScoringError
	return errors.As(err, &se)
}
