package views

import (
	"sort"

	"github.com/AdamBeresnev/tkd-draws/internal/bracket"
)

type BracketRounds struct {
	Rounds    map[int][]bracket.Match
	RoundNums []int
}

// GroupRounds splits a draw's matches into rounds, each in slot order.
func GroupRounds(matches []bracket.Match) BracketRounds {
	rounds := make(map[int][]bracket.Match)
	var roundNums []int

	for _, m := range matches {
		if _, exists := rounds[m.RoundNo]; !exists {
			roundNums = append(roundNums, m.RoundNo)
		}
		rounds[m.RoundNo] = append(rounds[m.RoundNo], m)
	}

	sort.Ints(roundNums)
	for _, r := range roundNums {
		sort.Slice(rounds[r], func(i, j int) bool {
			return rounds[r][i].SlotA < rounds[r][j].SlotA
		})
	}

	return BracketRounds{Rounds: rounds, RoundNums: roundNums}
}

func RoundLabel(round, last int) string {
	switch last - round {
	case 0:
		return "Final"
	case 1:
		return "Semifinal"
	case 2:
		return "Quarterfinal"
	}
	return "Round " + itoa(round)
}
