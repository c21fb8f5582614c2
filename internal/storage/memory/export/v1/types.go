// Package v1 contains the v1 export format for recorded engagements.
package v1

// Version is written into every export.
const Version = 1

// Export is the root JSON structure for v1 format.
// Units is indexed by unit id; ids without a unit hold a zero entry.
type Export struct {
	Version      int      `json:"version"`
	Name         string   `json:"name"`
	Source       string   `json:"source"`
	Tags         string   `json:"tags"`
	Region       [4]int   `json:"region"` // tile x, y, width, height
	CooldownRule string   `json:"cooldownRule"`
	EndFrame     int      `json:"endFrame"`
	Players      []Player `json:"players"`
	Units        []Unit   `json:"units"`
	Events       [][]any  `json:"events"`
	Outcome      *Outcome `json:"outcome,omitempty"`
}

// Player is an engagement side.
type Player struct {
	ID       int            `json:"id"`
	Name     string         `json:"name"`
	Upgrades map[string]int `json:"upgrades,omitempty"`
}

// Unit is a unit with its sampled states.
// Positions entries are [frame, [x, y], facing, hp, shields].
type Unit struct {
	ID         int      `json:"id"`
	Player     int      `json:"player"`
	Type       string   `json:"type"`
	Race       string   `json:"race"`
	MaxHP      float64  `json:"maxHp"`
	MaxShields float64  `json:"maxShields"`
	Weapons    []string `json:"weapons,omitempty"`
	DeathFrame int      `json:"deathFrame"` // -1 while alive
	Positions  [][]any  `json:"positions"`
}

// Outcome summarizes how the engagement ended.
type Outcome struct {
	Reason      string          `json:"reason"`
	Winner      *int            `json:"winner"`
	Survivors   []int           `json:"survivors"`
	DamageDealt map[int]float64 `json:"damageDealt"`
	Kills       map[int]int     `json:"kills"`
}
