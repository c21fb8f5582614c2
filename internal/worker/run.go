package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/OCAP2/combatsim/internal/influx"
	"github.com/OCAP2/combatsim/internal/logging"
	"github.com/OCAP2/combatsim/internal/scenario"
	"github.com/OCAP2/combatsim/pkg/core"
	"github.com/OCAP2/combatsim/pkg/sim"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// run is the bookkeeping of one engagement between ticks.
type run struct {
	id     uint
	name   string
	start  time.Time
	player map[sim.UnitID]sim.PlayerID
	weapon map[sim.UnitID]string
	pos    map[sim.UnitID]sim.Position
	// last unit to damage each victim, for kill attribution
	lastAttacker map[sim.UnitID]sim.UnitID

	damage map[int]float64
	kills  map[int]int

	lastSample int
}

func newRun(units []sim.SimUnit) *run {
	r := &run{
		player:       make(map[sim.UnitID]sim.PlayerID, len(units)),
		weapon:       make(map[sim.UnitID]string, len(units)),
		pos:          make(map[sim.UnitID]sim.Position, len(units)),
		lastAttacker: make(map[sim.UnitID]sim.UnitID),
		damage:       make(map[int]float64),
		kills:        make(map[int]int),
		lastSample:   -1,
	}
	for _, u := range units {
		r.player[u.ID] = u.Player
		r.pos[u.ID] = u.Position
		if len(u.Weapons) > 0 {
			r.weapon[u.ID] = u.Weapons[0].Type.Name
		}
	}
	return r
}

func (r *run) frameTime(frame int) time.Time {
	return r.start.Add(time.Duration(frame) * FrameDuration)
}

// Run simulates a scenario to completion and records it into the backend.
// It stops when at most one player has live units, at the frame limit, or when ctx is
// cancelled. A cancelled run still ends its engagement and returns the partial outcome
// together with ctx.Err().
func (m *Manager) Run(ctx context.Context, s *scenario.Scenario) (core.Outcome, error) {
	setup, err := s.Build(m.deps.Catalog)
	if err != nil {
		return core.Outcome{}, err
	}
	for _, w := range setup.Warnings {
		m.log(ctx, "Run", fmt.Sprintf("%s: %s", s.Name, w), "WARN")
	}

	header := s.Engagement()
	if header.MaxFrames <= 0 {
		header.MaxFrames = m.deps.MaxFrames
	}
	rule := m.deps.CooldownRule
	if header.CooldownRule != "" {
		if rule, err = sim.ParseCooldownRule(header.CooldownRule); err != nil {
			return core.Outcome{}, fmt.Errorf("%s: %w", s.Name, err)
		}
	}
	header.CooldownRule = rule.String()
	header.StartTime = time.Now()

	eng, err := sim.New(setup.Region, setup.Units, sim.WithCooldownRule(rule))
	if err != nil {
		return core.Outcome{}, fmt.Errorf("%s: %w", s.Name, err)
	}
	for id, order := range setup.Orders {
		eng.SetOrder(id, order)
	}

	if err := m.backend.StartEngagement(&header); err != nil {
		return core.Outcome{}, fmt.Errorf("failed to start engagement: %w", err)
	}
	m.deps.Running.Inc()
	defer m.deps.Running.Dec()
	ctx = logging.WithEngagement(ctx, header.ID)

	r := newRun(setup.Units)
	r.id = header.ID
	r.name = header.Name
	r.start = header.StartTime

	for _, u := range setup.Units {
		cu := coreUnit(header.ID, u)
		if err := m.backend.AddUnit(&cu); err != nil {
			m.log(ctx, "Run", fmt.Sprintf("failed to add unit %d: %v", u.ID, err), "ERROR")
		}
	}
	m.log(ctx, "Run", fmt.Sprintf("engagement %d (%s) started with %d units", header.ID, header.Name, len(setup.Units)), "INFO")

	reason := core.EndAnnihilation
	for len(eng.Players()) > 1 {
		if eng.Frame() >= header.MaxFrames {
			reason = core.EndFrameLimit
			break
		}
		if ctx.Err() != nil {
			reason = core.EndCancelled
			break
		}
		summary := eng.Tick()
		m.record(ctx, r, eng, summary)
		if m.deps.StateInterval > 0 && eng.Frame()%m.deps.StateInterval == 0 {
			m.sampleStates(ctx, r, eng)
		}
	}
	m.sampleStates(ctx, r, eng)

	outcome := buildOutcome(r, eng, reason)
	outcome.Duration = time.Since(header.StartTime)

	if err := m.backend.EndEngagement(&outcome); err != nil {
		return outcome, fmt.Errorf("failed to end engagement: %w", err)
	}
	m.deps.Outcomes.Add(outcome)

	m.metrics.completed.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", string(reason))))
	m.metrics.frames.Record(ctx, int64(outcome.Frames))
	m.log(ctx, "Run", fmt.Sprintf("engagement %d (%s) ended after %d frames: %s", outcome.EngagementID, outcome.Name, outcome.Frames, reason), "INFO")

	if m.deps.OnOutcome != nil {
		m.deps.OnOutcome(outcome)
	}
	if reason == core.EndCancelled {
		return outcome, ctx.Err()
	}
	return outcome, nil
}

// record stores the hits and deaths of one frame. Positions in r are still those the
// frame was resolved against.
func (m *Manager) record(ctx context.Context, r *run, eng *sim.Engagement, summary sim.FrameSummary) {
	m.metrics.ticks.Add(ctx, 1)

	frameDamage := make(map[int]float64)
	t := r.frameTime(summary.Frame)

	hits := summary.Hits()
	for _, h := range hits {
		ev := core.HitEvent{
			EngagementID: r.id,
			Frame:        summary.Frame,
			Time:         t,
			VictimID:     int(h.Target),
			HPDamage:     h.Damage.HP,
			ShieldDamage: h.Damage.Shield,
		}
		if h.Attacker != nil {
			attacker := int(*h.Attacker)
			ev.AttackerID = &attacker
			ev.Weapon = r.weapon[*h.Attacker]
			ev.Distance = r.pos[*h.Attacker].Distance(r.pos[h.Target])
			r.lastAttacker[h.Target] = *h.Attacker

			p := int(r.player[*h.Attacker])
			r.damage[p] += h.Damage.Total()
			frameDamage[p] += h.Damage.Total()
		}
		if err := m.backend.RecordHitEvent(&ev); err != nil {
			m.log(ctx, "record", fmt.Sprintf("failed to record hit on %d: %v", ev.VictimID, err), "ERROR")
		}
	}

	deaths := summary.Deaths()
	for _, victim := range deaths {
		ev := core.KillEvent{
			EngagementID: r.id,
			Frame:        summary.Frame,
			Time:         t,
			VictimID:     int(victim),
		}
		if killer, ok := r.lastAttacker[victim]; ok {
			k := int(killer)
			ev.KillerID = &k
			ev.Weapon = r.weapon[killer]
			r.kills[int(r.player[killer])]++
		}
		if err := m.backend.RecordKillEvent(&ev); err != nil {
			m.log(ctx, "record", fmt.Sprintf("failed to record death of %d: %v", victim, err), "ERROR")
		}
		delete(r.pos, victim)
	}

	m.metrics.effects.Add(ctx, int64(len(hits)), metric.WithAttributes(attribute.String("kind", "damaged")))
	m.metrics.effects.Add(ctx, int64(len(deaths)), metric.WithAttributes(attribute.String("kind", "died")))

	units := eng.AllUnits()
	for _, u := range units {
		r.pos[u.ID] = u.Position
	}

	if m.deps.Influx != nil {
		point := influx.FramePoint(influx.FrameStats{
			EngagementID: r.id,
			Name:         r.name,
			Frame:        summary.Frame,
			Hits:         len(hits),
			Kills:        len(deaths),
			Alive:        len(units),
			Damage:       frameDamage,
		}, t)
		if err := m.deps.Influx.WritePoint(m.deps.Bucket, point); err != nil {
			m.log(ctx, "record", fmt.Sprintf("failed to write frame point: %v", err), "WARN")
		}
	}
}

// sampleStates records every live unit once per frame at most.
func (m *Manager) sampleStates(ctx context.Context, r *run, eng *sim.Engagement) {
	if eng.Frame() == r.lastSample {
		return
	}
	r.lastSample = eng.Frame()
	t := r.frameTime(eng.Frame())
	for _, u := range eng.AllUnits() {
		st := core.UnitState{
			EngagementID: r.id,
			UnitID:       int(u.ID),
			Frame:        eng.Frame(),
			Time:         t,
			Position:     core.Position{X: u.Position.X, Y: u.Position.Y},
			Facing:       u.Facing,
			HP:           u.HP,
			Shields:      u.Shields,
		}
		if err := m.backend.RecordUnitState(&st); err != nil {
			m.log(ctx, "sampleStates", fmt.Sprintf("failed to record state of %d: %v", u.ID, err), "ERROR")
		}
	}
}

func buildOutcome(r *run, eng *sim.Engagement, reason core.EndReason) core.Outcome {
	o := core.Outcome{
		EngagementID: r.id,
		Name:         r.name,
		Frames:       eng.Frame(),
		Reason:       reason,
		Survivors:    []core.Survivor{},
		Dead:         []int{},
		DamageDealt:  r.damage,
		Kills:        r.kills,
	}
	if reason == core.EndAnnihilation {
		if players := eng.Players(); len(players) == 1 {
			w := int(players[0])
			o.Winner = &w
		}
	}
	for _, u := range eng.AllUnits() {
		o.Survivors = append(o.Survivors, core.Survivor{
			UnitID:   int(u.ID),
			PlayerID: int(u.Player),
			Type:     u.Type.Name,
			HP:       u.HP,
			Shields:  u.Shields,
			Position: core.Position{X: u.Position.X, Y: u.Position.Y},
		})
	}
	for _, id := range eng.Dead() {
		o.Dead = append(o.Dead, int(id))
	}
	return o
}

func coreUnit(engagementID uint, u sim.SimUnit) core.Unit {
	cu := core.Unit{
		EngagementID: engagementID,
		ID:           int(u.ID),
		PlayerID:     int(u.Player),
		Type:         u.Type.Name,
		Race:         u.Type.Race.String(),
		Position:     core.Position{X: u.Position.X, Y: u.Position.Y},
		HP:           u.HP,
		Shields:      u.Shields,
		MaxHP:        u.MaxHP(),
		MaxShields:   u.MaxShields(),
	}
	for _, w := range u.Weapons {
		cu.Weapons = append(cu.Weapons, w.Type.Name)
	}
	return cu
}
