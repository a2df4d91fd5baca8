package entity

const Draw = "draw"

// WinDecision is the verdict of a finished match.
type WinDecision struct {
	Winner       string         `json:"winner"`
	WinnerUserID int64          `json:"winnerUserId,omitempty"`
	Reason       string         `json:"reason"`
	Scores       map[string]int `json:"scores"`
	Lines        map[string]int `json:"lines"`
}

func (that *WinDecision) IsDraw() bool {
	return that.Winner == Draw
}

// MatchResult is what a runtime reports back to the lobby.
type MatchResult struct {
	RoomID  int64       `json:"room_id"`
	Users   []int64     `json:"users"`
	Results WinDecision `json:"results"`
}
