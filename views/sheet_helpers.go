package views

import (
	"strconv"

	"github.com/AdamBeresnev/tkd-draws/internal/bracket"
	"github.com/AdamBeresnev/tkd-draws/internal/utils"
)

func itoa(n int) string {
	return strconv.Itoa(n)
}

// side names one corner of a match. A missing competitor is a bye in the round it was drawn,
// otherwise the winner of an earlier match.
func side(name string, isBye bool) string {
	if name != "" {
		return name
	}
	if isBye {
		return "bye"
	}
	return "TBD"
}

func matchNumber(m bracket.Match) string {
	if n := utils.OrZero(m.MatchNumber); n > 0 {
		return itoa(n)
	}
	return "-"
}
