package bracket

import (
	"math/bits"
	"time"

	"github.com/google/uuid"
)

type Draw struct {
	ID               uuid.UUID `db:"id"`
	CompetitionID    int64     `db:"competition_id"`
	Gender           Gender    `db:"gender"`
	AgeCategoryID    *int64    `db:"age_category_id"`
	BeltGroupID      int64     `db:"belt_group_id"`
	WeightCategoryID int64     `db:"weight_category_id"`
	Size             int       `db:"size"`
	ClubThreshold    int       `db:"club_threshold"`
	RNGSeed          string    `db:"rng_seed"`
	CreatedAt        time.Time `db:"created_at"`
}

// Rounds is log2(Size): the number of rounds a full ladder has.
func (d *Draw) Rounds() int {
	if d.Size <= 1 {
		return 0
	}
	return bits.Len(uint(d.Size)) - 1
}

func (d *Draw) Division() DivisionKey {
	return DivisionKey{
		CompetitionID:    d.CompetitionID,
		Gender:           d.Gender,
		AgeCategoryID:    d.AgeCategoryID,
		BeltGroupID:      d.BeltGroupID,
		WeightCategoryID: d.WeightCategoryID,
	}
}

func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
