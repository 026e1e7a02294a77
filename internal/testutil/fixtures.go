package testutil

import (
	"fmt"
	"testing"

	"github.com/AdamBeresnev/tkd-draws/internal/bracket"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

// Fixtures inserts the rows the registration side of the application would normally own.
type Fixtures struct {
	t       *testing.T
	db      *sqlx.DB
	players int
}

func NewFixtures(t *testing.T, db *sqlx.DB) *Fixtures {
	return &Fixtures{t: t, db: db}
}

func (f *Fixtures) insert(query string, args ...interface{}) int64 {
	f.t.Helper()
	res, err := f.db.Exec(query, args...)
	require.NoError(f.t, err)
	id, err := res.LastInsertId()
	require.NoError(f.t, err)
	return id
}

// Competition creates a competition with its own age category.
func (f *Fixtures) Competition(title string, gender bracket.Gender, matCount int) *bracket.Competition {
	f.t.Helper()
	ageID := f.insert("INSERT INTO age_categories (name) VALUES (?)", "Seniors")
	id := f.insert("INSERT INTO competitions (title, gender, age_category_id, mat_count) VALUES (?, ?, ?, ?)",
		title, gender, ageID, matCount)
	return &bracket.Competition{ID: id, Title: title, Gender: gender, AgeCategoryID: &ageID, MatCount: matCount}
}

func (f *Fixtures) BeltGroup(label string) int64 {
	f.t.Helper()
	return f.insert("INSERT INTO belt_groups (label) VALUES (?)", label)
}

func (f *Fixtures) Weight(name string, gender bracket.Gender, minWeight, maxWeight float64) int64 {
	f.t.Helper()
	return f.insert("INSERT INTO weight_categories (name, gender, min_weight, max_weight) VALUES (?, ?, ?, ?)",
		name, gender, minWeight, maxWeight)
}

func (f *Fixtures) Club(name string) int64 {
	f.t.Helper()
	return f.insert("INSERT INTO clubs (name) VALUES (?)", name)
}

// Enroll registers a new player into a division and returns the player id.
func (f *Fixtures) Enroll(competitionID, beltGroupID, weightID int64, clubID *int64, status bracket.EnrollmentStatus) int64 {
	f.t.Helper()
	f.players++
	playerID := f.insert("INSERT INTO players (first_name, last_name, club_id) VALUES (?, ?, ?)",
		"Player", fmt.Sprintf("%d", f.players), clubID)
	f.insert(`INSERT INTO enrollments (competition_id, player_id, club_id, belt_group_id, weight_category_id, status)
		VALUES (?, ?, ?, ?, ?, ?)`, competitionID, playerID, clubID, beltGroupID, weightID, status)
	return playerID
}

// EnrollMany registers n paid players without a club.
func (f *Fixtures) EnrollMany(competitionID, beltGroupID, weightID int64, n int) []int64 {
	f.t.Helper()
	ids := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		ids = append(ids, f.Enroll(competitionID, beltGroupID, weightID, nil, bracket.StatusPaid))
	}
	return ids
}

func (f *Fixtures) AssignMat(competitionID int64, matNumber int, weightIDs ...int64) {
	f.t.Helper()
	assignmentID := f.insert("INSERT INTO mat_assignments (competition_id, mat_number) VALUES (?, ?)", competitionID, matNumber)
	for _, w := range weightIDs {
		f.insert("INSERT INTO mat_assignment_weights (mat_assignment_id, weight_category_id) VALUES (?, ?)", assignmentID, w)
	}
}
