package entity

import "time"

const DefaultMaxPlayers = 2

// GameMeta describes an uploaded game and how its session runtime is launched.
type GameMeta struct {
	Name        string    `json:"name"`
	Version     string    `json:"version"`
	Author      string    `json:"author"`
	Description string    `json:"description"`
	MinPlayers  int       `json:"min_players"`
	MaxPlayers  int       `json:"max_players"`
	FilePath    string    `json:"file_path,omitempty"`
	Execution   Execution `json:"execution"`
	CreatedAt   time.Time `json:"created_at"`
}

type Execution struct {
	Server ServerExecution `json:"server"`
}

// ServerExecution overrides the lobby's session defaults for one game.
type ServerExecution struct {
	Binary string `json:"binary,omitempty"`
	Engine string `json:"engine,omitempty"`
	Mode   string `json:"mode,omitempty"`
	DropMS int    `json:"drop_ms,omitempty"`
}

type GameSummary struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Author      string `json:"author"`
	Description string `json:"description"`
}

// Normalize fills player bounds the uploader left out.
func (that *GameMeta) Normalize() {
	if that.MaxPlayers <= 0 {
		that.MaxPlayers = DefaultMaxPlayers
	}

	if that.MinPlayers <= 0 || that.MinPlayers > that.MaxPlayers {
		that.MinPlayers = min(DefaultMaxPlayers, that.MaxPlayers)
	}
}

func (that *GameMeta) Summary() GameSummary {
	return GameSummary{
		Name:        that.Name,
		Version:     that.Version,
		Author:      that.Author,
		Description: that.Description,
	}
}
