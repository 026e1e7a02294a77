package bracket

import "strings"

type Player struct {
	ID        int64  `db:"id"`
	FirstName string `db:"first_name"`
	LastName  string `db:"last_name"`
	ClubID    *int64 `db:"club_id"`
}

func (p *Player) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}
