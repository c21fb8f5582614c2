package sim

import (
	"errors"
	"fmt"
	"sort"
)

// Passive per-frame rates.
const (
	HPRegenPerFrame     = 4.0 / 256.0
	ShieldRegenPerFrame = 7.0 / 256.0
	BurnPerFrame        = 20.0 / 256.0
)

// ErrDuplicateUnit is returned by New when two snapshots share an id.
var ErrDuplicateUnit = errors.New("duplicate unit id")

// CooldownRule selects how a weapon's cooldown gates attacks.
type CooldownRule int

const (
	// CooldownReference attacks while last_attack + cooldown >= frame, matching the
	// reference combat traces.
	CooldownReference CooldownRule = iota
	// CooldownElapsed attacks once cooldown frames have passed since the last attack.
	CooldownElapsed
)

func (r CooldownRule) String() string {
	if r == CooldownElapsed {
		return "elapsed"
	}
	return "reference"
}

// ParseCooldownRule accepts "reference" (or empty) and "elapsed".
func ParseCooldownRule(s string) (CooldownRule, error) {
	switch s {
	case "", "reference":
		return CooldownReference, nil
	case "elapsed":
		return CooldownElapsed, nil
	}
	return CooldownReference, fmt.Errorf("unknown cooldown rule %q", s)
}

// Option configures an Engagement.
type Option func(*Engagement)

// WithCooldownRule sets the cooldown gate.
func WithCooldownRule(r CooldownRule) Option {
	return func(e *Engagement) { e.cooldownRule = r }
}

// Engagement simulates one bounded fight. It is not safe for concurrent use.
type Engagement struct {
	region       Region
	frame        int
	units        map[UnitID]*SimUnit
	ids          []UnitID // live units in insertion order
	orders       map[UnitID]SimOrder
	dead         map[UnitID]struct{}
	deadOrder    []UnitID
	cooldownRule CooldownRule
}

// New builds an engagement from unit snapshots. Each snapshot is copied.
func New(region Region, units []SimUnit, opts ...Option) (*Engagement, error) {
	e := &Engagement{
		region: region,
		units:  make(map[UnitID]*SimUnit, len(units)),
		ids:    make([]UnitID, 0, len(units)),
		orders: make(map[UnitID]SimOrder),
		dead:   make(map[UnitID]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	for _, u := range units {
		if _, dup := e.units[u.ID]; dup {
			return nil, fmt.Errorf("unit %d: %w", u.ID, ErrDuplicateUnit)
		}
		c := u.Clone()
		e.units[u.ID] = &c
		e.ids = append(e.ids, u.ID)
	}
	return e, nil
}

// Region returns the engagement's bounds.
func (e *Engagement) Region() Region { return e.region }

// Frame returns the number of completed ticks.
func (e *Engagement) Frame() int { return e.frame }

// CooldownRule returns the active cooldown gate.
func (e *Engagement) CooldownRule() CooldownRule { return e.cooldownRule }

// SetOrder replaces a live unit's standing order. It returns false for unknown or dead
// units.
func (e *Engagement) SetOrder(unit UnitID, order Order) bool {
	if _, ok := e.units[unit]; !ok {
		return false
	}
	e.orders[unit] = SimOrder{Unit: unit, Order: order, IssuedFrame: e.frame}
	return true
}

// Order returns a unit's standing order, if one was set.
func (e *Engagement) Order(unit UnitID) (SimOrder, bool) {
	o, ok := e.orders[unit]
	return o, ok
}

// Unit returns a copy of a live unit.
func (e *Engagement) Unit(id UnitID) (SimUnit, bool) {
	u, ok := e.units[id]
	if !ok {
		return SimUnit{}, false
	}
	return u.Clone(), true
}

// AllUnits returns copies of the live units in insertion order.
func (e *Engagement) AllUnits() []SimUnit {
	out := make([]SimUnit, 0, len(e.ids))
	for _, id := range e.ids {
		out = append(out, e.units[id].Clone())
	}
	return out
}

// Len returns the number of live units.
func (e *Engagement) Len() int { return len(e.ids) }

// IsDead reports whether a unit died during the engagement.
func (e *Engagement) IsDead(id UnitID) bool {
	_, ok := e.dead[id]
	return ok
}

// Dead returns the ids of dead units in the order they died.
func (e *Engagement) Dead() []UnitID {
	return append([]UnitID(nil), e.deadOrder...)
}

// Players returns the sorted ids of players that still have live units.
func (e *Engagement) Players() []PlayerID {
	seen := make(map[PlayerID]struct{})
	var out []PlayerID
	for _, id := range e.ids {
		p := e.units[id].Player
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Tick advances the simulation by one frame. Every effect is computed against the
// state at the start of the frame before any of them is applied.
func (e *Engagement) Tick() FrameSummary {
	effects := e.processOrders()
	effects = append(effects, e.burning()...)
	effects = append(effects, e.regeneration()...)

	summary := newFrameSummary(e.frame)
	e.apply(effects, &summary)
	e.apply(e.deathSweep(), &summary)

	e.frame++
	return summary
}

func (e *Engagement) processOrders() []Effect {
	effects := make([]Effect, 0, len(e.ids))
	for _, id := range e.ids {
		var order Order = Guard{}
		if o, ok := e.orders[id]; ok && o.Order != nil {
			order = o.Order
		}
		p := processor{eng: e, unit: e.units[id]}
		effects = append(effects, p.process(order))
	}
	return effects
}

func (e *Engagement) burning() []Effect {
	var effects []Effect
	for _, id := range e.ids {
		u := e.units[id]
		if !u.Type.IsBuilding || !u.Type.Race.BuildingsBurn() {
			continue
		}
		if u.HP <= u.MaxHP()/3 {
			effects = append(effects, Damaged{Damage: Damage{HP: BurnPerFrame}, Target: id})
		}
	}
	return effects
}

func (e *Engagement) regeneration() []Effect {
	var effects []Effect
	for _, id := range e.ids {
		u := e.units[id]
		if u.Type.Race.RegeneratesShields() && u.Shields < u.MaxShields() {
			effects = append(effects, Healed{Unit: id, Damage: Damage{Shield: ShieldRegenPerFrame}})
		}
		if u.Type.Race.RegeneratesHP() && u.HP < u.MaxHP() {
			effects = append(effects, Healed{Unit: id, Damage: Damage{HP: HPRegenPerFrame}})
		}
	}
	return effects
}

func (e *Engagement) deathSweep() []Effect {
	var effects []Effect
	for _, id := range e.ids {
		if e.units[id].HP < 0 {
			effects = append(effects, Died{Unit: id})
		}
	}
	return effects
}

func (e *Engagement) apply(effects []Effect, summary *FrameSummary) {
	for _, effect := range effects {
		switch ef := effect.(type) {
		case Idle:
		case Damaged:
			if target, ok := e.units[ef.Target]; ok {
				target.HP -= ef.Damage.HP
				target.Shields -= ef.Damage.Shield
			}
			if ef.Attacker != nil {
				if attacker, ok := e.units[*ef.Attacker]; ok {
					attacker.LastAttackFrame = e.frame
					attacker.attacked = true
				}
			}
			summary.record(ef)
		case Healed:
			if u, ok := e.units[ef.Unit]; ok {
				if ef.Damage.HP != 0 {
					u.HP = min(u.HP+ef.Damage.HP, u.MaxHP())
				}
				if ef.Damage.Shield != 0 {
					u.Shields = min(u.Shields+ef.Damage.Shield, u.MaxShields())
				}
			}
		case Moved:
			if u, ok := e.units[ef.Unit]; ok {
				u.Position = ef.Position
				u.Facing = ef.Facing
			}
		case Died:
			e.remove(ef.Unit)
			summary.record(ef)
		}
	}
}

func (e *Engagement) remove(id UnitID) {
	if _, ok := e.units[id]; !ok {
		return
	}
	delete(e.units, id)
	delete(e.orders, id)
	e.dead[id] = struct{}{}
	e.deadOrder = append(e.deadOrder, id)
	for i, live := range e.ids {
		if live == id {
			e.ids = append(e.ids[:i], e.ids[i+1:]...)
			break
		}
	}
}

func (e *Engagement) cooldownReady(u *SimUnit, w *SimWeapon) bool {
	if e.cooldownRule == CooldownElapsed {
		return !u.attacked || e.frame-u.LastAttackFrame >= w.Cooldown
	}
	return u.LastAttackFrame+w.Cooldown >= e.frame
}
