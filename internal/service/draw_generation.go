package service

import (
	"fmt"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/AdamBeresnev/tkd-draws/internal/bracket"
	"github.com/google/uuid"
)

// Gets the nearest power of 2 while rounding up, so with input 5 it returns 8 and so on
func calcBracketSize(count int) int {
	if count <= 0 {
		return 0
	}

	// Log2 -> Ceil -> 2^^log2 to round up
	log2 := math.Ceil(math.Log2(float64(count)))
	return int(math.Pow(2, log2))
}

// generateRound1Pairs returns the seed indices meeting in each first round match, 1 v N style.
// Seeds that are >= the number of competitors are byes, which spreads them one per pair.
func generateRound1Pairs(bracketSize int) [][2]int {
	if bracketSize < 2 {
		return [][2]int{}
	}

	rounds := []int{0}
	for len(rounds) < bracketSize {
		var nextRound []int
		currentCount := len(rounds) * 2

		for _, seed := range rounds {
			nextRound = append(nextRound, seed)
			nextRound = append(nextRound, (currentCount-1)-seed)
		}
		rounds = nextRound
	}

	pairs := make([][2]int, 0, bracketSize/2)
	for i := 0; i < len(rounds); i += 2 {
		matchup := [2]int{rounds[i], rounds[i+1]}
		pairs = append(pairs, matchup)
	}

	return pairs
}

func newSeed() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

// seededRand always yields the same sequence for the same seed string.
func seededRand(seed string) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(seed))
	sum := h.Sum64()
	return rand.New(rand.NewPCG(sum, sum^0x9e3779b97f4a7c15))
}

type pairing [2]*bracket.Enrollment

type drawPlan struct {
	size  int
	seed  string
	pairs []pairing
}

// planDraw shuffles the pool and lays it out over the first round.
// A zero sizeOverride means the smallest power of two that fits the pool.
func planDraw(pool []bracket.Enrollment, clubThreshold int, seed string, sizeOverride int) (*drawPlan, error) {
	if len(pool) < 1 {
		return nil, bracket.ErrNoParticipants
	}

	size := calcBracketSize(len(pool))
	if sizeOverride != 0 {
		if !bracket.IsPowerOfTwo(sizeOverride) {
			return nil, fmt.Errorf("%w: got %d", bracket.ErrInvalidBracketSize, sizeOverride)
		}
		if sizeOverride < len(pool) {
			return nil, fmt.Errorf("%w: %w: size %d, participants %d",
				bracket.ErrInvalidBracketSize, bracket.ErrBracketTooSmall, sizeOverride, len(pool))
		}
		// Past twice the pool some first round pair would have no competitor at all
		if sizeOverride > 2*len(pool) {
			return nil, fmt.Errorf("%w: %w: size %d, participants %d",
				bracket.ErrInvalidBracketSize, bracket.ErrBracketTooLarge, sizeOverride, len(pool))
		}
		size = sizeOverride
	}

	if seed == "" {
		seed = newSeed()
	}

	order := make([]bracket.Enrollment, len(pool))
	copy(order, pool)
	rng := seededRand(seed)
	rng.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})

	pairs := make([]pairing, 0, size/2)
	for _, p := range generateRound1Pairs(size) {
		var pair pairing
		for side, seedIdx := range p {
			if seedIdx < len(order) {
				pair[side] = &order[seedIdx]
			}
		}
		pairs = append(pairs, pair)
	}

	if len(pool) >= clubThreshold {
		repairClubConflicts(pairs)
	}

	return &drawPlan{size: size, seed: seed, pairs: pairs}, nil
}

func sameClub(a, b *bracket.Enrollment) bool {
	return a != nil && b != nil && a.ClubID != nil && b.ClubID != nil && *a.ClubID == *b.ClubID
}

// repairClubConflicts walks the first round left to right. When both sides of a pair share a
// club, the second side is swapped with a competitor from a later pair. A candidate whose move
// keeps its own pair clean wins over one that does not. Byes are never moved, and a pair with
// no usable candidate keeps its conflict.
func repairClubConflicts(pairs []pairing) {
	for i := range pairs {
		a, b := pairs[i][0], pairs[i][1]
		if !sameClub(a, b) {
			continue
		}

		fallbackPair, fallbackSide := -1, -1
		swapped := false
		for j := i + 1; j < len(pairs) && !swapped; j++ {
			for side := 0; side < 2; side++ {
				c := pairs[j][side]
				if c == nil || sameClub(a, c) {
					continue
				}
				if !sameClub(b, pairs[j][1-side]) {
					pairs[i][1], pairs[j][side] = c, b
					swapped = true
					break
				}
				if fallbackPair < 0 {
					fallbackPair, fallbackSide = j, side
				}
			}
		}

		if !swapped && fallbackPair >= 0 {
			pairs[i][1], pairs[fallbackPair][fallbackSide] = pairs[fallbackPair][fallbackSide], b
		}
	}
}

// buildFirstRound turns a plan into round 1 match rows. A pair with no competitor at all
// cannot come out of planDraw, so it is treated as a broken invariant and rejects the draw.
func buildFirstRound(draw *bracket.Draw, pairs []pairing, now time.Time) ([]bracket.Match, error) {
	matches := make([]bracket.Match, 0, len(pairs))
	for i, pair := range pairs {
		if pair[0] == nil && pair[1] == nil {
			return nil, fmt.Errorf("%w: pair %d of bracket size %d", bracket.ErrEmptyPairing, i, draw.Size)
		}

		m := bracket.Match{
			ID:        uuid.New(),
			DrawID:    draw.ID,
			RoundNo:   1,
			SlotA:     2 * i,
			SlotB:     2*i + 1,
			CreatedAt: now,
		}
		if pair[0] != nil {
			m.PlayerAID = &pair[0].PlayerID
		}
		if pair[1] != nil {
			m.PlayerBID = &pair[1].PlayerID
		}
		m.IsBye = !m.HasBothPlayers()

		matches = append(matches, m)
	}
	return matches, nil
}
