package scenario

import (
	"fmt"

	"github.com/OCAP2/combatsim/internal/geo"
	"github.com/OCAP2/combatsim/pkg/core"
	"github.com/OCAP2/combatsim/pkg/gamedata"
	"github.com/OCAP2/combatsim/pkg/sim"
)

// ShieldUpgrade raises the shield armor of every shielded unit.
const ShieldUpgrade gamedata.UpgradeType = "Protoss_Plasma_Shields"

// Setup is a scenario resolved against a catalog, ready for sim.New.
type Setup struct {
	Region sim.Region
	Units  []sim.SimUnit
	Orders map[sim.UnitID]sim.Order
	// Warnings lists units placed outside the region. They still fight.
	Warnings []string
}

type livePlayer struct {
	id       sim.PlayerID
	upgrades map[gamedata.UpgradeType]int
}

func (p *livePlayer) ID() sim.PlayerID { return p.id }

func (p *livePlayer) UpgradeLevel(u gamedata.UpgradeType) int {
	if u == gamedata.UpgradeNone || u == "" {
		return 0
	}
	return p.upgrades[u]
}

// liveUnit binds a unit spec to the simulator's snapshot interface.
type liveUnit struct {
	spec    UnitSpec
	typ     *gamedata.UnitType
	player  *livePlayer
	hp      int
	shields int
}

func (u *liveUnit) ID() sim.UnitID           { return sim.UnitID(u.spec.ID) }
func (u *liveUnit) Type() *gamedata.UnitType { return u.typ }
func (u *liveUnit) Player() sim.LivePlayer   { return u.player }
func (u *liveUnit) Position() sim.Position   { return SimPosition(u.spec.Position) }
func (u *liveUnit) Angle() float64           { return u.spec.Facing }
func (u *liveUnit) HitPoints() int           { return u.hp }
func (u *liveUnit) Shields() int             { return u.shields }
func (u *liveUnit) Armor() int               { return u.typ.Armor + u.player.UpgradeLevel(u.typ.ArmorUpgrade) }
func (u *liveUnit) ShieldArmor() int {
	if u.typ.MaxShields == 0 {
		return 0
	}
	return u.player.UpgradeLevel(ShieldUpgrade)
}

// SimPosition converts a stored pixel position.
func SimPosition(p core.Position) sim.Position {
	return sim.Position{X: p.X, Y: p.Y}
}

// SimRegion converts a stored tile region.
func SimRegion(r core.Region) sim.Region {
	return sim.Region{
		TopLeft: sim.TilePosition{X: r.X, Y: r.Y},
		Size:    sim.TilePosition{X: r.Width, Y: r.Height},
	}
}

// Build resolves unit types and upgrades through the catalog and snapshots every unit.
func (s *Scenario) Build(cat *gamedata.Catalog) (*Setup, error) {
	if cat == nil {
		cat = gamedata.Default()
	}

	players := make(map[int]*livePlayer, len(s.Players))
	for _, p := range s.Players {
		lp := &livePlayer{id: sim.PlayerID(p.ID), upgrades: make(map[gamedata.UpgradeType]int, len(p.Upgrades))}
		for name, level := range p.Upgrades {
			lp.upgrades[gamedata.UpgradeType(name)] = level
		}
		players[p.ID] = lp
	}

	ids := make(map[int]struct{}, len(s.Units))
	for _, spec := range s.Units {
		ids[spec.ID] = struct{}{}
	}

	setup := &Setup{
		Region: SimRegion(s.Region),
		Units:  make([]sim.SimUnit, 0, len(s.Units)),
		Orders: make(map[sim.UnitID]sim.Order),
	}
	for _, spec := range s.Units {
		typ, ok := cat.Unit(spec.Type)
		if !ok {
			return nil, fmt.Errorf("unit %d: %w %q", spec.ID, ErrUnknownUnitType, spec.Type)
		}
		player, ok := players[spec.Player]
		if !ok {
			return nil, fmt.Errorf("unit %d: %w %d", spec.ID, ErrUnknownPlayer, spec.Player)
		}

		lu := &liveUnit{spec: spec, typ: typ, player: player, hp: typ.MaxHitPoints, shields: typ.MaxShields}
		if spec.HP != nil {
			lu.hp = *spec.HP
		}
		if spec.Shields != nil {
			lu.shields = *spec.Shields
		}
		setup.Units = append(setup.Units, sim.FromUnit(lu))

		if !geo.InRegion(s.Region, spec.Position) {
			setup.Warnings = append(setup.Warnings, fmt.Sprintf("unit %d (%s) at %d,%d is outside the region",
				spec.ID, typ.Name, spec.Position.X, spec.Position.Y))
		}

		if spec.Order != nil {
			order, err := spec.Order.toOrder(ids)
			if err != nil {
				return nil, fmt.Errorf("unit %d: %w", spec.ID, err)
			}
			setup.Orders[sim.UnitID(spec.ID)] = order
		}
	}

	return setup, nil
}

func (o *OrderSpec) toOrder(ids map[int]struct{}) (sim.Order, error) {
	target := func() (sim.UnitID, error) {
		if o.Target == nil {
			return 0, fmt.Errorf("%w: %s needs a target", ErrInvalidOrder, o.Type)
		}
		if _, ok := ids[*o.Target]; !ok {
			return 0, fmt.Errorf("%w: %s target %d is not in the scenario", ErrInvalidOrder, o.Type, *o.Target)
		}
		return sim.UnitID(*o.Target), nil
	}
	dest := func() (sim.Position, error) {
		if o.To == nil {
			return sim.Position{}, fmt.Errorf("%w: %s needs a destination", ErrInvalidOrder, o.Type)
		}
		return SimPosition(*o.To), nil
	}

	switch o.Type {
	case "guard":
		return sim.Guard{}, nil
	case "hold":
		return sim.Hold{}, nil
	case "stop":
		return sim.Stop{}, nil
	case "attack":
		t, err := target()
		return sim.Attack{Target: t}, err
	case "follow":
		t, err := target()
		return sim.Follow{Target: t}, err
	case "repair":
		t, err := target()
		return sim.Repair{Target: t}, err
	case "move":
		d, err := dest()
		return sim.Move{Dest: d}, err
	case "attackMove":
		d, err := dest()
		return sim.AttackMove{Dest: d}, err
	case "patrol":
		d, err := dest()
		if err != nil {
			return nil, err
		}
		if o.From == nil {
			return nil, fmt.Errorf("%w: patrol needs a start", ErrInvalidOrder)
		}
		return sim.Patrol{From: SimPosition(*o.From), To: d}, nil
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidOrder, o.Type)
	}
}
