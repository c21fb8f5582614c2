package core

import "time"

// HitEvent is one damage application. AttackerID is nil for environmental damage
// such as burning buildings.
type HitEvent struct {
	EngagementID uint      `json:"-"`
	Frame        int       `json:"frame"`
	Time         time.Time `json:"-"`
	AttackerID   *int      `json:"attacker,omitempty"`
	VictimID     int       `json:"victim"`
	Weapon       string    `json:"weapon,omitempty"`
	HPDamage     float64   `json:"hpDamage"`
	ShieldDamage float64   `json:"shieldDamage"`
	Distance     float64   `json:"distance"`
}

// KillEvent records a unit's death. KillerID is the last unit to damage the victim,
// nil when the killing blow came from the environment.
type KillEvent struct {
	EngagementID uint      `json:"-"`
	Frame        int       `json:"frame"`
	Time         time.Time `json:"-"`
	VictimID     int       `json:"victim"`
	KillerID     *int      `json:"killer,omitempty"`
	Weapon       string    `json:"weapon,omitempty"`
}
