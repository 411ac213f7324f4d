package dto

// Profile is the response payload for GET /api/me.
type Profile struct {
	Username       string  `json:"username"`
	ItemsCommitted int     `json:"itemsCommitted"`
	ItemsGoal      int     `json:"itemsGoal"`
	GoalProgress   float64 `json:"goalProgress"` // 0..1
}

func NewProfile(username string, committed, goal int) Profile {
	p := Profile{Username: username, ItemsCommitted: committed, ItemsGoal: goal}
	if goal > 0 {
		p.GoalProgress = float64(committed) / float64(goal)
		if p.GoalProgress > 1 {
			p.GoalProgress = 1
		}
	}
	return p
}
