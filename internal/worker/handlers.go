package worker

import (
	"context"
	"fmt"
	"strconv"

	"github.com/OCAP2/combatsim/internal/dispatcher"
	"github.com/OCAP2/combatsim/internal/scenario"
	"github.com/OCAP2/combatsim/pkg/sim"
)

const (
	CmdRun     = ":ENGAGEMENT:RUN:"
	CmdVolleys = ":ENGAGEMENT:VOLLEYS:"
	CmdOutcome = ":ENGAGEMENT:OUTCOME:"
)

// VolleyResult answers a volleys query.
type VolleyResult struct {
	Weapon  string     `json:"weapon"`
	Target  string     `json:"target"`
	Level   int        `json:"upgradeLevel"`
	PerHit  sim.Damage `json:"perHit"`
	Volleys int        `json:"volleys"` // sim.Unkillable when the weapon can never finish the target
}

// RegisterHandlers registers all event handlers with the dispatcher.
// Runs are queued and executed by up to workers goroutines under ctx; queries answer
// synchronously.
func (m *Manager) RegisterHandlers(ctx context.Context, d *dispatcher.Dispatcher, workers, queueSize int) {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 100
	}

	// Engagement runs - buffered, one engagement per worker
	d.Register(CmdRun, func(e dispatcher.Event) (any, error) {
		return m.handleRun(ctx, e)
	}, dispatcher.Buffered(queueSize), dispatcher.Workers(workers), dispatcher.Blocking(), dispatcher.Logged())

	// Queries - sync
	d.Register(CmdVolleys, m.handleVolleys, dispatcher.Logged())
	d.Register(CmdOutcome, m.handleOutcome)
}

// handleRun takes a *scenario.Scenario payload, or a scenario path as the first argument.
func (m *Manager) handleRun(ctx context.Context, e dispatcher.Event) (any, error) {
	s, ok := e.Payload.(*scenario.Scenario)
	if !ok || s == nil {
		if len(e.Args) == 0 || e.Args[0] == "" {
			return nil, m.runFailed("", ErrUnknownScenario)
		}
		var err error
		if s, err = scenario.Load(e.Args[0]); err != nil {
			return nil, m.runFailed(e.Args[0], err)
		}
	}
	o, err := m.Run(ctx, s)
	if err != nil {
		return o, m.runFailed(s.Name, err)
	}
	return o, nil
}

func (m *Manager) runFailed(name string, err error) error {
	if m.deps.OnError != nil {
		m.deps.OnError(name, err)
	}
	return err
}

// handleVolleys expects args [weapon, target unit type, upgrade level?].
func (m *Manager) handleVolleys(e dispatcher.Event) (any, error) {
	if len(e.Args) < 2 {
		return nil, fmt.Errorf("volleys needs a weapon and a target, got %d args", len(e.Args))
	}
	level := 0
	if len(e.Args) > 2 {
		var err error
		if level, err = strconv.Atoi(e.Args[2]); err != nil {
			return nil, fmt.Errorf("invalid upgrade level %q: %w", e.Args[2], err)
		}
	}
	return m.Volleys(e.Args[0], e.Args[1], level)
}

// Volleys computes per-hit damage and volleys to kill for a weapon at an upgrade level
// against a fresh unit of the target type with base armor.
func (m *Manager) Volleys(weapon, target string, level int) (VolleyResult, error) {
	wt, ok := m.deps.Catalog.Weapon(weapon)
	if !ok {
		return VolleyResult{}, fmt.Errorf("%w %q", ErrUnknownWeapon, weapon)
	}
	ut, ok := m.deps.Catalog.Unit(target)
	if !ok {
		return VolleyResult{}, fmt.Errorf("%w %q", scenario.ErrUnknownUnitType, target)
	}

	w := sim.WithUpgrade(wt, wt.DamageBonus*level)
	u := sim.NewUnit(ut, 0, ut.Armor, float64(ut.MaxHitPoints), float64(ut.MaxShields))
	return VolleyResult{
		Weapon:  wt.Name,
		Target:  ut.Name,
		Level:   level,
		PerHit:  sim.DamagePerHit(&w, &u),
		Volleys: sim.VolleysToKill(u, &w),
	}, nil
}

// handleOutcome looks up a finished engagement by id or name.
func (m *Manager) handleOutcome(e dispatcher.Event) (any, error) {
	if len(e.Args) == 0 {
		return nil, fmt.Errorf("outcome needs an engagement id or name")
	}
	key := e.Args[0]
	if id, err := strconv.ParseUint(key, 10, 64); err == nil {
		if o, ok := m.deps.Outcomes.Get(uint(id)); ok {
			return o, nil
		}
	}
	if o, ok := m.deps.Outcomes.GetByName(key); ok {
		return o, nil
	}
	return nil, fmt.Errorf("%w %q", ErrNoOutcome, key)
}
