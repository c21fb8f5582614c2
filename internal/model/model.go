package model

import (
	"database/sql"
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&SimInfo{},
	&Engagement{},
	&Unit{},
	&UnitState{},
	&HitEvent{},
	&KillEvent{},
	&SimPerformance{},
}

////////////////////////
// SYSTEM MODELS
////////////////////////

// SimInfo describes the instance that produced the data
type SimInfo struct {
	gorm.Model
	GroupName        string `json:"groupName" gorm:"size:127"`
	GroupDescription string `json:"groupDescription" gorm:"size:255"`
	CatalogVersion   string `json:"catalogVersion" gorm:"size:64"`
}

func (*SimInfo) TableName() string {
	return "sim_infos"
}

// SimPerformance is a periodic snapshot of the runner
type SimPerformance struct {
	ID                  uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time                time.Time `json:"time" gorm:"type:timestamptz;index:idx_simperformance_time"`
	RunningEngagements  int       `json:"runningEngagements"`
	CachedOutcomes      int       `json:"cachedOutcomes"`
	DispatchQueue       int       `json:"dispatchQueue"`
	WriteQueue          int       `json:"writeQueue"`
	LastWriteDurationMs float32   `json:"lastWriteDurationMs"`
}

func (*SimPerformance) TableName() string {
	return "sim_performances"
}

////////////////////////
// RECORDING MODELS
////////////////////////

// Engagement is one simulated fight. Outcome columns are filled when it ends.
type Engagement struct {
	gorm.Model
	Name         string         `json:"name" gorm:"size:200"`
	Source       string         `json:"source" gorm:"size:255"`
	Tag          string         `json:"tag" gorm:"size:127"`
	StartTime    time.Time      `json:"startTime" gorm:"type:timestamptz;index:idx_engagement_start"`
	Region       geom.Polygon   `json:"region"` // pixel footprint
	RegionTiles  datatypes.JSON `json:"regionTiles" gorm:"type:jsonb"`
	CooldownRule string         `json:"cooldownRule" gorm:"size:16"`
	MaxFrames    int            `json:"maxFrames"`
	Players      datatypes.JSON `json:"players" gorm:"type:jsonb;default:'[]'"`

	EndFrame    int            `json:"endFrame"`
	EndReason   string         `json:"endReason" gorm:"size:32"`
	WinnerID    sql.NullInt32  `json:"winnerId" gorm:"default:NULL"`
	DamageDealt datatypes.JSON `json:"damageDealt" gorm:"type:jsonb;default:'{}'"`
	Kills       datatypes.JSON `json:"kills" gorm:"type:jsonb;default:'{}'"`
	DurationMs  float64        `json:"durationMs"`
}

func (*Engagement) TableName() string {
	return "engagements"
}

// Unit is a unit registered at the start of an engagement
// Uses composite primary key (EngagementID, ObjectID) - ObjectID is the scenario's unit id
type Unit struct {
	EngagementID  uint           `json:"engagementId" gorm:"primaryKey;autoIncrement:false"`
	ObjectID      int            `json:"unitId" gorm:"primaryKey;autoIncrement:false"`
	CreatedAt     time.Time      `json:"createdAt"`
	PlayerID      int            `json:"player" gorm:"index:idx_unit_player"`
	UnitType      string         `json:"type" gorm:"size:64"`
	Race          string         `json:"race" gorm:"size:16"`
	StartPosition geom.Point     `json:"startPosition"`
	HP            float64        `json:"hp"`
	Shields       float64        `json:"shields"`
	MaxHP         float64        `json:"maxHp"`
	MaxShields    float64        `json:"maxShields"`
	Weapons       datatypes.JSON `json:"weapons" gorm:"type:jsonb;default:'[]'"`
}

func (*Unit) TableName() string {
	return "units"
}

// UnitState is a sampled unit snapshot
type UnitState struct {
	ID           uint       `json:"id" gorm:"primarykey;autoIncrement;"`
	Time         time.Time  `json:"time" gorm:"type:timestamptz;"`
	EngagementID uint       `json:"engagementId" gorm:"index:idx_unitstate_engagement_id"`
	UnitObjectID int        `json:"unitId" gorm:"index:idx_unitstate_unit_id"`
	Frame        int        `json:"frame" gorm:"index:idx_unitstate_frame"`
	Position     geom.Point `json:"position"`
	Facing       float64    `json:"facing"`
	HP           float64    `json:"hp"`
	Shields      float64    `json:"shields"`
}

func (*UnitState) TableName() string {
	return "unit_states"
}

// HitEvent is one damage application. A NULL attacker is environmental damage.
type HitEvent struct {
	ID               uint          `json:"id" gorm:"primarykey;autoIncrement;"`
	Time             time.Time     `json:"time" gorm:"type:timestamptz;"`
	EngagementID     uint          `json:"engagementId" gorm:"index:idx_hitevent_engagement_id"`
	Frame            int           `json:"frame" gorm:"index:idx_hitevent_frame"`
	AttackerObjectID sql.NullInt32 `json:"attackerId" gorm:"default:NULL"`
	VictimObjectID   int           `json:"victimId"`
	Weapon           string        `json:"weapon" gorm:"size:64"`
	HPDamage         float64       `json:"hpDamage"`
	ShieldDamage     float64       `json:"shieldDamage"`
	Distance         float64       `json:"distance"`
}

func (*HitEvent) TableName() string {
	return "hit_events"
}

// KillEvent records a unit's death
type KillEvent struct {
	ID             uint          `json:"id" gorm:"primarykey;autoIncrement;"`
	Time           time.Time     `json:"time" gorm:"type:timestamptz;"`
	EngagementID   uint          `json:"engagementId" gorm:"index:idx_killevent_engagement_id"`
	Frame          int           `json:"frame"`
	VictimObjectID int           `json:"victimId"`
	KillerObjectID sql.NullInt32 `json:"killerId" gorm:"default:NULL"`
	Weapon         string        `json:"weapon" gorm:"size:64"`
}

func (*KillEvent) TableName() string {
	return "kill_events"
}
