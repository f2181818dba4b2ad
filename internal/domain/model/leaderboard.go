package model

type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	Username    string `json:"username"`
	Points      int    `json:"points"`
	SolvedCount int    `json:"solved_count"`
}
