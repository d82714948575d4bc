package models

// TournamentStanding is derived from approved matches and never stored.
type TournamentStanding struct {
	AthleteID    int    `json:"athlete_id"`
	Name         string `json:"name,omitempty"`
	Rank         int    `json:"rank"`
	Played       int    `json:"played"`
	Wins         int    `json:"wins"`
	Losses       int    `json:"losses"`
	ScoreFor     int    `json:"score_for"`
	ScoreAgainst int    `json:"score_against"`
	PointDiff    int    `json:"point_diff"`
}
