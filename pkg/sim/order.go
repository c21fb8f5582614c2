package sim

import "fmt"

// Order is a standing intent for one unit.
type Order interface {
	isOrder()
	fmt.Stringer
}

// Guard attacks whatever comes in range. Units without an order guard.
type Guard struct{}

// Attack targets one unit.
type Attack struct{ Target UnitID }

// AttackMove walks to Dest, attacking anything in range on the way.
type AttackMove struct{ Dest Position }

// Move walks to Dest without attacking.
type Move struct{ Dest Position }

// Follow walks after another unit.
type Follow struct{ Target UnitID }

// Repair restores a mechanical unit or building. Not simulated.
type Repair struct{ Target UnitID }

// Hold stays in place, attacking what is in range.
type Hold struct{}

// Stop does nothing.
type Stop struct{}

// Patrol walks between two points.
type Patrol struct{ From, To Position }

// GroundAbility casts a tech at a point. Not simulated.
type GroundAbility struct {
	Tech string
	Dest Position
}

// TargetedAbility casts a tech on a unit. Not simulated.
type TargetedAbility struct {
	Tech   string
	Target UnitID
}

func (Guard) isOrder()           {}
func (Attack) isOrder()          {}
func (AttackMove) isOrder()      {}
func (Move) isOrder()            {}
func (Follow) isOrder()          {}
func (Repair) isOrder()          {}
func (Hold) isOrder()            {}
func (Stop) isOrder()            {}
func (Patrol) isOrder()          {}
func (GroundAbility) isOrder()   {}
func (TargetedAbility) isOrder() {}

func (Guard) String() string        { return "Guard" }
func (o Attack) String() string     { return fmt.Sprintf("Attack(%d)", o.Target) }
func (o AttackMove) String() string { return fmt.Sprintf("AttackMove(%d,%d)", o.Dest.X, o.Dest.Y) }
func (o Move) String() string       { return fmt.Sprintf("Move(%d,%d)", o.Dest.X, o.Dest.Y) }
func (o Follow) String() string     { return fmt.Sprintf("Follow(%d)", o.Target) }
func (o Repair) String() string     { return fmt.Sprintf("Repair(%d)", o.Target) }
func (Hold) String() string         { return "Hold" }
func (Stop) String() string         { return "Stop" }
func (o Patrol) String() string {
	return fmt.Sprintf("Patrol(%d,%d->%d,%d)", o.From.X, o.From.Y, o.To.X, o.To.Y)
}
func (o GroundAbility) String() string {
	return fmt.Sprintf("GroundAbility(%s@%d,%d)", o.Tech, o.Dest.X, o.Dest.Y)
}
func (o TargetedAbility) String() string {
	return fmt.Sprintf("TargetedAbility(%s@%d)", o.Tech, o.Target)
}

// SimOrder is an order bound to a unit and the frame it was issued on.
type SimOrder struct {
	Unit        UnitID
	Order       Order
	IssuedFrame int
}
