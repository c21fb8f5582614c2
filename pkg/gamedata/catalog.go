package gamedata

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// CatalogVersion is the game patch the embedded catalog's numbers come from.
const CatalogVersion = "1.16.1"

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// Catalog indexes weapon and unit types by name.
type Catalog struct {
	weapons map[string]*WeaponType
	units   map[string]*UnitType
}

type catalogFile struct {
	Weapons []weaponDef `yaml:"weapons"`
	Units   []unitDef   `yaml:"units"`
}

type weaponDef struct {
	Name          string `yaml:"name"`
	Damage        int    `yaml:"damage"`
	Bonus         int    `yaml:"bonus"`
	Factor        int    `yaml:"factor"`
	Cooldown      int    `yaml:"cooldown"`
	DamageType    string `yaml:"damage_type"`
	MinRange      int    `yaml:"min_range"`
	MaxRange      int    `yaml:"max_range"`
	TargetsAir    bool   `yaml:"targets_air"`
	TargetsGround bool   `yaml:"targets_ground"`
	Upgrade       string `yaml:"upgrade"`
}

type unitDef struct {
	Name         string  `yaml:"name"`
	Race         string  `yaml:"race"`
	Size         string  `yaml:"size"`
	HP           int     `yaml:"hp"`
	Shields      int     `yaml:"shields"`
	Armor        int     `yaml:"armor"`
	ArmorUpgrade string  `yaml:"armor_upgrade"`
	Speed        float64 `yaml:"speed"`
	Width        int     `yaml:"width"`
	Height       int     `yaml:"height"`
	Building     bool    `yaml:"building"`
	Flyer        bool    `yaml:"flyer"`
	GroundWeapon string  `yaml:"ground_weapon"`
	AirWeapon    string  `yaml:"air_weapon"`
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the catalog compiled into the binary. It panics if the embedded
// data is malformed, which only a broken build can cause.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Parse(defaultCatalogYAML)
		if err != nil {
			panic(fmt.Sprintf("gamedata: embedded catalog: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// Load reads a catalog override from a YAML file.
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse builds a catalog from YAML bytes.
func Parse(raw []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("catalog yaml: %w", err)
	}

	c := &Catalog{
		weapons: make(map[string]*WeaponType, len(f.Weapons)),
		units:   make(map[string]*UnitType, len(f.Units)),
	}

	for _, wd := range f.Weapons {
		if wd.Name == "" {
			return nil, fmt.Errorf("weapon without a name")
		}
		if _, dup := c.weapons[wd.Name]; dup {
			return nil, fmt.Errorf("duplicate weapon %q", wd.Name)
		}
		dt, err := ParseDamageType(wd.DamageType)
		if err != nil {
			return nil, fmt.Errorf("weapon %s: %w", wd.Name, err)
		}
		factor := wd.Factor
		if factor == 0 {
			factor = 1
		}
		c.weapons[wd.Name] = &WeaponType{
			Name:           wd.Name,
			DamageAmount:   wd.Damage,
			DamageBonus:    wd.Bonus,
			DamageFactor:   factor,
			DamageCooldown: wd.Cooldown,
			DamageType:     dt,
			MinRange:       wd.MinRange,
			MaxRange:       wd.MaxRange,
			TargetsAir:     wd.TargetsAir,
			TargetsGround:  wd.TargetsGround,
			Upgrade:        upgradeOrNone(wd.Upgrade),
		}
	}

	for _, ud := range f.Units {
		if ud.Name == "" {
			return nil, fmt.Errorf("unit without a name")
		}
		if _, dup := c.units[ud.Name]; dup {
			return nil, fmt.Errorf("duplicate unit %q", ud.Name)
		}
		race, err := ParseRace(ud.Race)
		if err != nil {
			return nil, fmt.Errorf("unit %s: %w", ud.Name, err)
		}
		size, err := ParseUnitSize(ud.Size)
		if err != nil {
			return nil, fmt.Errorf("unit %s: %w", ud.Name, err)
		}
		ground, err := c.weaponSlot(ud.GroundWeapon)
		if err != nil {
			return nil, fmt.Errorf("unit %s ground weapon: %w", ud.Name, err)
		}
		air, err := c.weaponSlot(ud.AirWeapon)
		if err != nil {
			return nil, fmt.Errorf("unit %s air weapon: %w", ud.Name, err)
		}
		c.units[ud.Name] = &UnitType{
			Name:         ud.Name,
			Race:         race,
			Size:         size,
			MaxHitPoints: ud.HP,
			MaxShields:   ud.Shields,
			Armor:        ud.Armor,
			ArmorUpgrade: upgradeOrNone(ud.ArmorUpgrade),
			TopSpeed:     ud.Speed,
			Width:        ud.Width,
			Height:       ud.Height,
			IsBuilding:   ud.Building,
			IsFlyer:      ud.Flyer,
			GroundWeapon: ground,
			AirWeapon:    air,
		}
	}

	return c, nil
}

// weaponSlot resolves a weapon name; empty, None and Unknown leave the slot empty.
func (c *Catalog) weaponSlot(name string) (*WeaponType, error) {
	switch strings.ToLower(name) {
	case "", "none", "unknown":
		return nil, nil
	}
	w, ok := c.weapons[name]
	if !ok {
		return nil, fmt.Errorf("unknown weapon %q", name)
	}
	return w, nil
}

func upgradeOrNone(s string) UpgradeType {
	if s == "" {
		return UpgradeNone
	}
	return UpgradeType(s)
}

// Unit returns the unit type with the given name.
func (c *Catalog) Unit(name string) (*UnitType, bool) {
	u, ok := c.units[name]
	return u, ok
}

// Weapon returns the weapon type with the given name.
func (c *Catalog) Weapon(name string) (*WeaponType, bool) {
	w, ok := c.weapons[name]
	return w, ok
}

// MustUnit is Unit for callers that know the name exists.
func (c *Catalog) MustUnit(name string) *UnitType {
	u, ok := c.units[name]
	if !ok {
		panic(fmt.Sprintf("gamedata: unknown unit type %q", name))
	}
	return u
}

// MustWeapon is Weapon for callers that know the name exists.
func (c *Catalog) MustWeapon(name string) *WeaponType {
	w, ok := c.weapons[name]
	if !ok {
		panic(fmt.Sprintf("gamedata: unknown weapon type %q", name))
	}
	return w
}

// Units returns every unit type sorted by name.
func (c *Catalog) Units() []*UnitType {
	out := make([]*UnitType, 0, len(c.units))
	for _, u := range c.units {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Weapons returns every weapon type sorted by name.
func (c *Catalog) Weapons() []*WeaponType {
	out := make([]*WeaponType, 0, len(c.weapons))
	for _, w := range c.weapons {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
