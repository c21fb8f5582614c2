// Package core holds the storage-neutral records an engagement run produces. Storage
// backends convert these into their own representations.
package core

import "time"

// Position is a point in pixels.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Region is the engagement's bounds in tiles.
type Region struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Player is a side of an engagement with its upgrade levels.
type Player struct {
	ID       int            `json:"id"`
	Name     string         `json:"name"`
	Upgrades map[string]int `json:"upgrades,omitempty"`
}

// Engagement describes one simulated fight.
// ID is assigned by the storage backend in StartEngagement.
type Engagement struct {
	ID           uint      `json:"id"`
	Name         string    `json:"name"`
	Source       string    `json:"source"` // scenario file the engagement was built from
	Tag          string    `json:"tag"`
	StartTime    time.Time `json:"startTime"`
	Region       Region    `json:"region"`
	CooldownRule string    `json:"cooldownRule"`
	MaxFrames    int       `json:"maxFrames"`
	Players      []Player  `json:"players"`
}

// Unit is a unit registered at the start of an engagement.
type Unit struct {
	EngagementID uint     `json:"-"`
	ID           int      `json:"id"`
	PlayerID     int      `json:"player"`
	Type         string   `json:"type"`
	Race         string   `json:"race"`
	Position     Position `json:"position"`
	HP           float64  `json:"hp"`
	Shields      float64  `json:"shields"`
	MaxHP        float64  `json:"maxHp"`
	MaxShields   float64  `json:"maxShields"`
	Weapons      []string `json:"weapons,omitempty"`
}

// UnitState is a sampled snapshot of a live unit.
type UnitState struct {
	EngagementID uint      `json:"-"`
	UnitID       int       `json:"unit"`
	Frame        int       `json:"frame"`
	Time         time.Time `json:"-"`
	Position     Position  `json:"position"`
	Facing       float64   `json:"facing"`
	HP           float64   `json:"hp"`
	Shields      float64   `json:"shields"`
}
