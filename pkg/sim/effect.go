package sim

// Effect is one state change produced during a tick.
type Effect interface {
	// Subject is the unit the effect happens to.
	Subject() UnitID
	isEffect()
}

// Idle changes nothing.
type Idle struct{ Unit UnitID }

// Damaged subtracts Damage from Target. A nil Attacker is the environment (burning).
type Damaged struct {
	Attacker *UnitID
	Damage   Damage
	Target   UnitID
}

// Healed adds Damage back to Unit, up to its maxima.
type Healed struct {
	Unit   UnitID
	Damage Damage
}

// Moved places Unit at Position facing Facing.
type Moved struct {
	Unit     UnitID
	Position Position
	Facing   float64
}

// Died removes Unit from the engagement.
type Died struct{ Unit UnitID }

func (e Idle) Subject() UnitID    { return e.Unit }
func (e Damaged) Subject() UnitID { return e.Target }
func (e Healed) Subject() UnitID  { return e.Unit }
func (e Moved) Subject() UnitID   { return e.Unit }
func (e Died) Subject() UnitID    { return e.Unit }

func (Idle) isEffect()    {}
func (Damaged) isEffect() {}
func (Healed) isEffect()  {}
func (Moved) isEffect()   {}
func (Died) isEffect()    {}

// FromEnvironment reports whether the damage has no attacking unit.
func (e Damaged) FromEnvironment() bool { return e.Attacker == nil }

func attackedBy(id UnitID) *UnitID { return &id }
