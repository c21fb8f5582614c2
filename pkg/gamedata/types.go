// Package gamedata holds the static unit and weapon tables the combat simulator reads.
// Values mirror the in-game data the live binding reports, one entry per type name.
package gamedata

import (
	"fmt"
	"strings"
)

// Race is a playable faction. Passive combat mechanics differ per race.
type Race int

const (
	RaceNone Race = iota
	RaceTerran
	RaceZerg
	RaceProtoss
)

var raceNames = map[Race]string{
	RaceNone:    "None",
	RaceTerran:  "Terran",
	RaceZerg:    "Zerg",
	RaceProtoss: "Protoss",
}

func (r Race) String() string {
	if s, ok := raceNames[r]; ok {
		return s
	}
	return fmt.Sprintf("Race(%d)", int(r))
}

// RegeneratesHP reports whether units of this race slowly heal hit points.
func (r Race) RegeneratesHP() bool { return r == RaceZerg }

// RegeneratesShields reports whether units of this race recharge shields.
func (r Race) RegeneratesShields() bool { return r == RaceProtoss }

// BuildingsBurn reports whether damaged buildings of this race lose hp on their own
// once they drop to a third of their maximum.
func (r Race) BuildingsBurn() bool { return r == RaceTerran }

// ParseRace converts a race name (case-insensitive) to a Race.
func ParseRace(s string) (Race, error) {
	for r, name := range raceNames {
		if strings.EqualFold(name, s) {
			return r, nil
		}
	}
	return RaceNone, fmt.Errorf("unknown race %q", s)
}

// DamageType decides how much of a hit survives against each unit size.
type DamageType int

const (
	DamageIndependent DamageType = iota
	DamageExplosive
	DamageConcussive
	DamageNormal
	DamageIgnoreArmor
	DamageNone
	DamageUnknown
	DamageTypeCount
)

var damageTypeNames = [DamageTypeCount]string{
	"Independent", "Explosive", "Concussive", "Normal", "Ignore_Armor", "None", "Unknown",
}

func (d DamageType) String() string {
	if d >= 0 && d < DamageTypeCount {
		return damageTypeNames[d]
	}
	return fmt.Sprintf("DamageType(%d)", int(d))
}

// ParseDamageType converts a damage type name to a DamageType.
func ParseDamageType(s string) (DamageType, error) {
	for i, name := range damageTypeNames {
		if strings.EqualFold(name, s) {
			return DamageType(i), nil
		}
	}
	return DamageUnknown, fmt.Errorf("unknown damage type %q", s)
}

// UnitSize is the size class a damage ratio is looked up against.
type UnitSize int

const (
	SizeIndependent UnitSize = iota
	SizeSmall
	SizeMedium
	SizeLarge
	SizeNone
	SizeUnknown
	UnitSizeCount
)

var unitSizeNames = [UnitSizeCount]string{
	"Independent", "Small", "Medium", "Large", "None", "Unknown",
}

func (s UnitSize) String() string {
	if s >= 0 && s < UnitSizeCount {
		return unitSizeNames[s]
	}
	return fmt.Sprintf("UnitSize(%d)", int(s))
}

// ParseUnitSize converts a size class name to a UnitSize.
func ParseUnitSize(s string) (UnitSize, error) {
	for i, name := range unitSizeNames {
		if strings.EqualFold(name, s) {
			return UnitSize(i), nil
		}
	}
	return SizeUnknown, fmt.Errorf("unknown unit size %q", s)
}

// UpgradeType names a researchable upgrade; weapons and armor scale with its level.
type UpgradeType string

// UpgradeNone marks a weapon or armor that no upgrade affects.
const UpgradeNone UpgradeType = "None"

// WeaponType is the static description of one weapon.
type WeaponType struct {
	Name           string
	DamageAmount   int
	DamageBonus    int // added per upgrade level
	DamageFactor   int // hits per attack animation
	DamageCooldown int // frames
	DamageType     DamageType
	MinRange       int // pixels
	MaxRange       int // pixels
	TargetsAir     bool
	TargetsGround  bool
	Upgrade        UpgradeType
}

// UnitType is the static description of one unit or building.
type UnitType struct {
	Name         string
	Race         Race
	Size         UnitSize
	MaxHitPoints int
	MaxShields   int
	Armor        int
	ArmorUpgrade UpgradeType
	TopSpeed     float64 // pixels per frame
	Width        int
	Height       int
	IsBuilding   bool
	IsFlyer      bool
	GroundWeapon *WeaponType
	AirWeapon    *WeaponType
}

func (u *UnitType) String() string {
	if u == nil {
		return "<nil>"
	}
	return u.Name
}
