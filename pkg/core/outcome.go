package core

import "time"

// EndReason explains why an engagement stopped.
type EndReason string

const (
	EndAnnihilation EndReason = "annihilation" // at most one player has live units
	EndFrameLimit   EndReason = "frameLimit"
	EndCancelled    EndReason = "cancelled"
)

// Survivor is a unit alive when the engagement ended.
type Survivor struct {
	UnitID   int      `json:"unit"`
	PlayerID int      `json:"player"`
	Type     string   `json:"type"`
	HP       float64  `json:"hp"`
	Shields  float64  `json:"shields"`
	Position Position `json:"position"`
}

// Outcome is the result of an engagement run.
type Outcome struct {
	EngagementID uint            `json:"engagementId"`
	Name         string          `json:"name"`
	Frames       int             `json:"frames"`
	Reason       EndReason       `json:"reason"`
	Winner       *int            `json:"winner"` // nil on a draw or when several players remain
	Survivors    []Survivor      `json:"survivors"`
	Dead         []int           `json:"dead"`
	DamageDealt  map[int]float64 `json:"damageDealt"` // by attacking player
	Kills        map[int]int     `json:"kills"`       // by killing player
	Duration     time.Duration   `json:"duration"`
}

// UploadMetadata describes an exported engagement for the web frontend.
type UploadMetadata struct {
	EngagementName string
	Region         string
	Frames         int
	Tag            string
}
