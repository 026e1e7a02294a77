package bracket

import "time"

type EnrollmentStatus string

const (
	StatusPendingPayment EnrollmentStatus = "pending_payment"
	StatusPaid           EnrollmentStatus = "paid"
	StatusConfirmed      EnrollmentStatus = "confirmed"
	StatusAccepted       EnrollmentStatus = "accepted"
	StatusCompleted      EnrollmentStatus = "completed"
	StatusCanceled       EnrollmentStatus = "canceled"
)

// EligibleStatuses are the statuses that put an enrollment into a draw.
var EligibleStatuses = []EnrollmentStatus{StatusPaid, StatusConfirmed, StatusAccepted, StatusCompleted}

func (s EnrollmentStatus) IsEligible() bool {
	for _, eligible := range EligibleStatuses {
		if s == eligible {
			return true
		}
	}
	return false
}

type Enrollment struct {
	ID               int64            `db:"id"`
	CompetitionID    int64            `db:"competition_id"`
	PlayerID         int64            `db:"player_id"`
	ClubID           *int64           `db:"club_id"`
	BeltGroupID      *int64           `db:"belt_group_id"`
	WeightCategoryID *int64           `db:"weight_category_id"`
	Status           EnrollmentStatus `db:"status"`
	CreatedAt        time.Time        `db:"created_at"`
}

// DivisionKey identifies the population of one bracket. It is never stored on its own.
type DivisionKey struct {
	CompetitionID    int64
	Gender           Gender
	AgeCategoryID    *int64
	BeltGroupID      int64
	WeightCategoryID int64
}
