package logging

const (
	GroupID    = "group_id"
	EventID    = "event_id"
	GameID     = "game_id"
	SeedUsed   = "seed_used"
	RatingSys  = "rating_system"
	EloDiff    = "elo_diff"
	RelaxIters = "relax_iterations"
)
