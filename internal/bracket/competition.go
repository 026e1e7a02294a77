package bracket

import "time"

type Gender string

const (
	Male   Gender = "male"
	Female Gender = "female"
)

type Competition struct {
	ID                 int64      `db:"id"`
	Title              string     `db:"title"`
	Gender             Gender     `db:"gender"`
	AgeCategoryID      *int64     `db:"age_category_id"`
	MatCount           int        `db:"mat_count"`
	BracketPublishedAt *time.Time `db:"bracket_published_at"`
	CreatedAt          time.Time  `db:"created_at"`
}

func (c *Competition) IsPublished() bool {
	return c.BracketPublishedAt != nil
}

type WeightCategory struct {
	ID        int64   `db:"id"`
	Name      string  `db:"name"`
	Gender    Gender  `db:"gender"`
	MinWeight float64 `db:"min_weight"`
	MaxWeight float64 `db:"max_weight"`
}

// MatAssignment is one weight category configured on one mat of a competition.
type MatAssignment struct {
	MatNumber        int    `db:"mat_number"`
	WeightCategoryID int64  `db:"weight_category_id"`
	WeightName       string `db:"weight_name"`
}
