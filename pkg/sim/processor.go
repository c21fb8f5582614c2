package sim

// processor turns one unit's standing order into a single effect. It only reads the
// engagement.
type processor struct {
	eng  *Engagement
	unit *SimUnit
}

func (p processor) process(order Order) Effect {
	switch o := order.(type) {
	case Guard:
		return p.guard()
	case Attack:
		return p.attackUnit(p.eng.units[o.Target])
	case AttackMove:
		return p.attackMove(o.Dest)
	case Move:
		return p.moveTowards(o.Dest)
	case Follow:
		return p.moveTowardsUnit(p.eng.units[o.Target])
	case Hold:
		return p.holdPosition()
	case Patrol:
		// TODO: turn around at To and walk back to From.
		return p.attackMove(o.To)
	case Repair, Stop, GroundAbility, TargetedAbility:
		return p.idle()
	default:
		return p.idle()
	}
}

func (p processor) idle() Effect { return Idle{Unit: p.unit.ID} }

func (p processor) moveTowards(dest Position) Effect {
	velocity := p.unit.Type.TopSpeed
	if p.unit.Position.Distance(dest) <= velocity {
		return Moved{Unit: p.unit.ID, Position: dest, Facing: p.unit.Facing}
	}
	return Moved{
		Unit:     p.unit.ID,
		Position: positionTowards(p.unit.Position, dest, velocity),
		Facing:   p.unit.Facing,
	}
}

func (p processor) moveTowardsUnit(target *SimUnit) Effect {
	if target == nil {
		return p.idle()
	}
	return p.moveTowards(target.Position)
}

// attackUnit always uses the first weapon, whatever the target's domain.
func (p processor) attackUnit(target *SimUnit) Effect {
	if target == nil || len(p.unit.Weapons) == 0 {
		return p.idle()
	}
	wep := &p.unit.Weapons[0]

	dist := p.unit.Position.Distance(target.Position)
	if dist > float64(wep.RangeMax) || dist < float64(wep.RangeMin) {
		return p.moveTowardsUnit(target)
	}
	if !p.eng.cooldownReady(p.unit, wep) {
		return p.idle()
	}
	return Damaged{
		Attacker: attackedBy(p.unit.ID),
		Damage:   DamagePerHit(wep, target),
		Target:   target.ID,
	}
}

// attackAnythingMaybe attacks the first enemy, in engagement order, that can be hit
// this frame.
func (p processor) attackAnythingMaybe() (Effect, bool) {
	for _, id := range p.eng.ids {
		target := p.eng.units[id]
		if target.Player == p.unit.Player {
			continue
		}
		if e, ok := p.attackUnit(target).(Damaged); ok {
			return e, true
		}
	}
	return nil, false
}

func (p processor) attackMove(dest Position) Effect {
	if e, ok := p.attackAnythingMaybe(); ok {
		return e
	}
	return p.moveTowards(dest)
}

func (p processor) holdPosition() Effect {
	if e, ok := p.attackAnythingMaybe(); ok {
		return e
	}
	return p.idle()
}

func (p processor) guard() Effect {
	if e, ok := p.attackAnythingMaybe(); ok {
		return e
	}
	// TODO: chase enemies inside the unit's acquisition range.
	return p.idle()
}

// positionTowards steps velocity pixels along the line from -> to, truncating to whole
// pixels. Destinations closer than one step are reached directly.
func positionTowards(from, to Position, velocity float64) Position {
	dist := from.Distance(to)
	if dist == 0 || dist < velocity {
		return to
	}
	t := velocity / dist
	return Position{
		X: int((1-t)*float64(from.X) + t*float64(to.X)),
		Y: int((1-t)*float64(from.Y) + t*float64(to.Y)),
	}
}
