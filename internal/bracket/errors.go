package bracket

import "errors"

// Draw errors
var (
	ErrNoParticipants     = errors.New("at least one eligible participant is required")
	ErrInvalidBracketSize = errors.New("bracket size must be a power of two")
	ErrBracketTooSmall    = errors.New("bracket size is smaller than the number of participants")
	ErrBracketTooLarge    = errors.New("bracket size is more than twice the number of participants")
	ErrEmptyPairing       = errors.New("first round pairing has no competitor on either side")
)

// Numbering errors
var (
	ErrNoWeightsSelected = errors.New("no weight categories selected")
	ErrWeightWithoutMat  = errors.New("no mat assigned for weight categories")
	ErrNoDraws           = errors.New("no draws exist for the selected weight categories")
)

// Lookup and publishing errors
var (
	ErrCompetitionNotFound = errors.New("competition not found")
	ErrDrawNotFound        = errors.New("draw not found")
	ErrBracketNotReady     = errors.New("bracket is not ready")
	ErrUnnumberedMatches   = errors.New("some matches have not been numbered yet")
)

// IsValidation reports whether err was caused by operator input rather than by the system.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrNoParticipants,
		ErrInvalidBracketSize,
		ErrBracketTooSmall,
		ErrBracketTooLarge,
		ErrNoWeightsSelected,
		ErrWeightWithoutMat,
		ErrNoDraws,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
