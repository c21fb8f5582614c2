// Package sim replays a bounded group of units frame by frame against the game's damage,
// regeneration and cooldown rules to predict how a fight resolves.
package sim

import (
	"math"

	"github.com/OCAP2/combatsim/pkg/gamedata"
)

// UnitID identifies a unit for the lifetime of an engagement.
type UnitID int

// PlayerID identifies the owner of a unit.
type PlayerID int

// Position is a point in pixels.
type Position struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// Distance returns the euclidean distance between two points.
func (p Position) Distance(o Position) float64 {
	return math.Hypot(float64(o.X-p.X), float64(o.Y-p.Y))
}

// TileSize is the width of one map tile in pixels.
const TileSize = 32

// TilePosition is a point in map tiles.
type TilePosition struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// ToPosition converts a tile coordinate to the pixel at its top-left corner.
func (t TilePosition) ToPosition() Position {
	return Position{X: t.X * TileSize, Y: t.Y * TileSize}
}

// Region bounds an engagement, in tiles.
type Region struct {
	TopLeft TilePosition `json:"topLeft" yaml:"topLeft"`
	Size    TilePosition `json:"size" yaml:"size"`
}

// Bounds returns the region's pixel extent as min (inclusive) and max (exclusive) corners.
func (r Region) Bounds() (Position, Position) {
	min := r.TopLeft.ToPosition()
	max := TilePosition{X: r.TopLeft.X + r.Size.X, Y: r.TopLeft.Y + r.Size.Y}.ToPosition()
	return min, max
}

// Contains reports whether a pixel position lies inside the region.
func (r Region) Contains(p Position) bool {
	min, max := r.Bounds()
	return p.X >= min.X && p.Y >= min.Y && p.X < max.X && p.Y < max.Y
}

// TargetType is the domain a weapon can hit.
type TargetType int

const (
	TargetGround TargetType = iota
	TargetAir
)

func (t TargetType) String() string {
	if t == TargetAir {
		return "Air"
	}
	return "Ground"
}

// LivePlayer is the slice of a live player the simulator reads.
type LivePlayer interface {
	ID() PlayerID
	UpgradeLevel(gamedata.UpgradeType) int
}

// LiveUnit is the slice of a live unit the simulator reads.
type LiveUnit interface {
	ID() UnitID
	Type() *gamedata.UnitType
	Player() LivePlayer
	Position() Position
	Angle() float64
	HitPoints() int
	Shields() int
	Armor() int
	ShieldArmor() int
}

// SimWeapon is a weapon as wielded by one unit, upgrades included.
type SimWeapon struct {
	Type          *gamedata.WeaponType
	Targets       TargetType
	UpgradeDamage int
	RangeMin      int
	RangeMax      int
	Cooldown      int
}

// NewWeapon snapshots a weapon for a player. Range upgrades are not modeled.
func NewWeapon(player LivePlayer, wep *gamedata.WeaponType) SimWeapon {
	level := 0
	if player != nil {
		level = player.UpgradeLevel(wep.Upgrade)
	}
	return newWeapon(wep, wep.DamageBonus*level)
}

func newWeapon(wep *gamedata.WeaponType, upgradeDamage int) SimWeapon {
	targets := TargetGround
	if wep.TargetsAir {
		targets = TargetAir
	}
	return SimWeapon{
		Type:          wep,
		Targets:       targets,
		UpgradeDamage: upgradeDamage,
		RangeMin:      wep.MinRange,
		RangeMax:      wep.MaxRange,
		Cooldown:      wep.DamageCooldown,
	}
}

// WithUpgrade returns a weapon snapshot with a fixed upgrade damage, for comparisons
// that have no player to read levels from.
func WithUpgrade(wep *gamedata.WeaponType, upgradeDamage int) SimWeapon {
	return newWeapon(wep, upgradeDamage)
}

// SimUnit is a unit snapshot owned by an engagement.
type SimUnit struct {
	ID              UnitID
	Player          PlayerID
	Type            *gamedata.UnitType
	LastAttackFrame int
	Position        Position
	Size            Position
	Facing          float64 // radians, 0 is east
	Weapons         []SimWeapon
	Armor           int
	ShieldArmor     int
	HP              float64 // rounds up in game
	Shields         float64 // rounds down in game

	attacked bool
}

// FromUnit snapshots a live unit.
func FromUnit(u LiveUnit) SimUnit {
	typ := u.Type()
	player := u.Player()
	var owner PlayerID
	if player != nil {
		owner = player.ID()
	}
	return SimUnit{
		ID:          u.ID(),
		Player:      owner,
		Type:        typ,
		Position:    u.Position(),
		Size:        Position{X: typ.Width, Y: typ.Height},
		Facing:      u.Angle(),
		Weapons:     unitWeapons(player, typ),
		HP:          float64(u.HitPoints()),
		Shields:     float64(u.Shields()),
		Armor:       u.Armor(),
		ShieldArmor: u.ShieldArmor(),
	}
}

// Air slot first, then ground. Empty slots are skipped.
func unitWeapons(player LivePlayer, typ *gamedata.UnitType) []SimWeapon {
	var out []SimWeapon
	for _, w := range []*gamedata.WeaponType{typ.AirWeapon, typ.GroundWeapon} {
		if w == nil || w.DamageType == gamedata.DamageNone || w.DamageType == gamedata.DamageUnknown {
			continue
		}
		out = append(out, NewWeapon(player, w))
	}
	return out
}

// NewUnit builds a bare unit of a type with explicit defensive stats and no weapons.
func NewUnit(typ *gamedata.UnitType, shieldArmor, armor int, hp, shields float64) SimUnit {
	return SimUnit{
		Type:        typ,
		Size:        Position{X: typ.Width, Y: typ.Height},
		ShieldArmor: shieldArmor,
		Armor:       armor,
		HP:          hp,
		Shields:     shields,
	}
}

// Clone returns a deep copy.
func (u SimUnit) Clone() SimUnit {
	if u.Weapons != nil {
		u.Weapons = append([]SimWeapon(nil), u.Weapons...)
	}
	return u
}

// MaxHP returns the type's maximum hit points.
func (u *SimUnit) MaxHP() float64 { return float64(u.Type.MaxHitPoints) }

// MaxShields returns the type's maximum shields.
func (u *SimUnit) MaxShields() float64 { return float64(u.Type.MaxShields) }

// HasAttacked reports whether the unit resolved an attack during the engagement.
func (u *SimUnit) HasAttacked() bool { return u.attacked }
