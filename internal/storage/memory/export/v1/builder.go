package v1

import (
	"math"
	"sort"

	"github.com/OCAP2/combatsim/pkg/core"
)

// EngagementData contains all the data needed to build an export
type EngagementData struct {
	Engagement *core.Engagement
	Units      map[int]*UnitRecord
	HitEvents  []core.HitEvent
	KillEvents []core.KillEvent
	Outcome    *core.Outcome
}

// UnitRecord groups a unit with all its sampled states
type UnitRecord struct {
	Unit   core.Unit
	States []core.UnitState
}

// Build creates an Export from the engagement data
func Build(data *EngagementData) Export {
	e := data.Engagement
	export := Export{
		Version:      Version,
		Name:         e.Name,
		Source:       e.Source,
		Tags:         e.Tag,
		Region:       [4]int{e.Region.X, e.Region.Y, e.Region.Width, e.Region.Height},
		CooldownRule: e.CooldownRule,
		Players:      make([]Player, 0, len(e.Players)),
		Units:        make([]Unit, 0),
		Events:       make([][]any, 0, len(data.HitEvents)+len(data.KillEvents)),
	}

	for _, p := range e.Players {
		export.Players = append(export.Players, Player{ID: p.ID, Name: p.Name, Upgrades: p.Upgrades})
	}

	deaths := make(map[int]int, len(data.KillEvents))
	for _, k := range data.KillEvents {
		deaths[k.VictimID] = k.Frame
	}

	maxFrame := 0

	// The viewer looks units up as units[id], so the slice index must equal the id.
	maxID := -1
	for id := range data.Units {
		maxID = max(maxID, id)
	}
	if maxID >= 0 {
		export.Units = make([]Unit, maxID+1)
		for i := range export.Units {
			export.Units[i] = Unit{ID: i, DeathFrame: -1, Positions: [][]any{}}
		}
	}

	for id, record := range data.Units {
		u := record.Unit
		unit := Unit{
			ID:         u.ID,
			Player:     u.PlayerID,
			Type:       u.Type,
			Race:       u.Race,
			MaxHP:      u.MaxHP,
			MaxShields: u.MaxShields,
			Weapons:    u.Weapons,
			DeathFrame: -1,
			Positions:  make([][]any, 0, len(record.States)+1),
		}
		if f, dead := deaths[u.ID]; dead {
			unit.DeathFrame = f
		}

		unit.Positions = append(unit.Positions, []any{
			0, []int{u.Position.X, u.Position.Y}, 0.0, round2(u.HP), round2(u.Shields),
		})
		for _, s := range record.States {
			unit.Positions = append(unit.Positions, []any{
				s.Frame, []int{s.Position.X, s.Position.Y}, round2(s.Facing), round2(s.HP), round2(s.Shields),
			})
			maxFrame = max(maxFrame, s.Frame)
		}
		export.Units[id] = unit
	}

	// Format: [frame, "hit", victimId, [attackerId, weapon], hpDamage, shieldDamage, distance]
	// attackerId is -1 for environmental damage.
	for _, evt := range data.HitEvents {
		attacker := -1
		if evt.AttackerID != nil {
			attacker = *evt.AttackerID
		}
		export.Events = append(export.Events, []any{
			evt.Frame,
			"hit",
			evt.VictimID,
			[]any{attacker, evt.Weapon},
			round2(evt.HPDamage),
			round2(evt.ShieldDamage),
			round2(evt.Distance),
		})
		maxFrame = max(maxFrame, evt.Frame)
	}

	// Format: [frame, "killed", victimId, [killerId, weapon]]
	for _, evt := range data.KillEvents {
		killer := -1
		if evt.KillerID != nil {
			killer = *evt.KillerID
		}
		export.Events = append(export.Events, []any{
			evt.Frame,
			"killed",
			evt.VictimID,
			[]any{killer, evt.Weapon},
		})
		maxFrame = max(maxFrame, evt.Frame)
	}

	// hits before kills within a frame
	sort.SliceStable(export.Events, func(i, j int) bool {
		return export.Events[i][0].(int) < export.Events[j][0].(int)
	})

	if o := data.Outcome; o != nil {
		maxFrame = max(maxFrame, o.Frames)
		survivors := make([]int, 0, len(o.Survivors))
		for _, s := range o.Survivors {
			survivors = append(survivors, s.UnitID)
		}
		export.Outcome = &Outcome{
			Reason:      string(o.Reason),
			Winner:      o.Winner,
			Survivors:   survivors,
			DamageDealt: o.DamageDealt,
			Kills:       o.Kills,
		}
	}

	export.EndFrame = maxFrame
	return export
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
