package protocol

// Session frame types.
const (
	TypeHello     = "HELLO"
	TypeWelcome   = "WELCOME"
	TypeCountdown = "COUNTDOWN"
	TypeStart     = "START"
	TypeInput     = "INPUT"
	TypeSnapshot  = "SNAPSHOT"
	TypeChat      = "CHAT"
	TypePlugin    = "PLUGIN"
	TypeGameOver  = "GAME_OVER"
	TypeError     = "ERROR"

	// TypeListening is written once to the runtime's stdout so the spawner learns the bound port.
	TypeListening = "LISTENING"
)

const (
	RolePlayer    = "player"
	RoleSpectator = "spectator"
)

// ActionMatchResult is sent by a finished runtime to the lobby.
const ActionMatchResult = "MATCH_RESULT"

// Envelope is used to peek at the type of a session frame.
type Envelope struct {
	Type string `json:"type"`
}

type Hello struct {
	Type   string `json:"type"`
	UserID int64  `json:"userId"`
	Role   string `json:"role,omitempty"`
}

type GravityPlan struct {
	Mode   string `json:"mode"`
	DropMS int    `json:"dropMs"`
}

type Welcome struct {
	Type        string      `json:"type"`
	Version     int         `json:"version"`
	Role        string      `json:"role"`
	Side        int         `json:"side"`
	Seed        int64       `json:"seed"`
	BagRule     string      `json:"bagRule"`
	GravityPlan GravityPlan `json:"gravityPlan"`
}

type Countdown struct {
	Type    string `json:"type"`
	Seconds int    `json:"seconds"`
}

type Input struct {
	Type   string `json:"type"`
	UserID int64  `json:"userId"`
	Action string `json:"action"`
}

type GameOver struct {
	Type         string         `json:"type"`
	Winner       string         `json:"winner"`
	WinnerUserID int64          `json:"winnerUserId,omitempty"`
	Reason       string         `json:"reason"`
	Score        map[string]int `json:"scores"`
	Lines        map[string]int `json:"lines"`
}

// Snapshot is one player's personalized view of the match.
type Snapshot struct {
	Type        string         `json:"type"`
	Tick        int64          `json:"tick"`
	UserID      int64          `json:"userId"`
	Side        int            `json:"side"`
	Self        any            `json:"self"`
	Opponents   []OpponentView `json:"opponents"`
	GravityPlan GravityPlan    `json:"gravityPlan"`
	At          int64          `json:"at"`
}

type OpponentView struct {
	UserID int64 `json:"userId"`
	Side   int   `json:"side"`
	Alive  bool  `json:"alive"`
	State  any   `json:"state"`
}

type ErrorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type Listening struct {
	Type string `json:"type"`
	Port int    `json:"port"`
}

func NewError(message string) ErrorFrame {
	return ErrorFrame{Type: TypeError, Message: message}
}
