// Package convert turns core engagement records into GORM models.
package convert

import (
	"database/sql"
	"encoding/json"
	"strconv"

	"github.com/OCAP2/combatsim/internal/geo"
	"github.com/OCAP2/combatsim/internal/model"
	"github.com/OCAP2/combatsim/pkg/core"
	"gorm.io/datatypes"
)

// toJSON marshals v for a jsonb column, falling back to empty.
func toJSON(v any, empty string) datatypes.JSON {
	data, err := json.Marshal(v)
	if err != nil || string(data) == "null" {
		return datatypes.JSON(empty)
	}
	return datatypes.JSON(data)
}

func nullInt(v *int) sql.NullInt32 {
	if v == nil {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: int32(*v), Valid: true}
}

// keyed converts int-keyed maps to string keys, which is how JSON stores them anyway.
func keyed[V any](m map[int]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[strconv.Itoa(k)] = v
	}
	return out
}

// CoreToEngagement converts a core.Engagement to a GORM model.Engagement.
// core.Engagement.ID maps to the GORM primary key.
func CoreToEngagement(e core.Engagement) model.Engagement {
	m := model.Engagement{
		Name:         e.Name,
		Source:       e.Source,
		Tag:          e.Tag,
		StartTime:    e.StartTime,
		Region:       geo.RegionPolygon(e.Region),
		RegionTiles:  toJSON(e.Region, "{}"),
		CooldownRule: e.CooldownRule,
		MaxFrames:    e.MaxFrames,
		Players:      toJSON(e.Players, "[]"),
		DamageDealt:  datatypes.JSON("{}"),
		Kills:        datatypes.JSON("{}"),
	}
	m.ID = e.ID
	return m
}

// OutcomeColumns returns the engagement columns an outcome fills in.
func OutcomeColumns(o core.Outcome) map[string]any {
	return map[string]any{
		"end_frame":    o.Frames,
		"end_reason":   string(o.Reason),
		"winner_id":    nullInt(o.Winner),
		"damage_dealt": toJSON(keyed(o.DamageDealt), "{}"),
		"kills":        toJSON(keyed(o.Kills), "{}"),
		"duration_ms":  float64(o.Duration.Microseconds()) / 1000,
	}
}

// CoreToUnit converts a core.Unit to a GORM model.Unit.
// core.Unit.ID maps to GORM Unit.ObjectID.
func CoreToUnit(u core.Unit) model.Unit {
	return model.Unit{
		EngagementID:  u.EngagementID,
		ObjectID:      u.ID,
		PlayerID:      u.PlayerID,
		UnitType:      u.Type,
		Race:          u.Race,
		StartPosition: geo.Point(u.Position),
		HP:            u.HP,
		Shields:       u.Shields,
		MaxHP:         u.MaxHP,
		MaxShields:    u.MaxShields,
		Weapons:       toJSON(u.Weapons, "[]"),
	}
}

// CoreToUnitState converts a core.UnitState to a GORM model.UnitState.
func CoreToUnitState(s core.UnitState) model.UnitState {
	return model.UnitState{
		Time:         s.Time,
		EngagementID: s.EngagementID,
		UnitObjectID: s.UnitID,
		Frame:        s.Frame,
		Position:     geo.Point(s.Position),
		Facing:       s.Facing,
		HP:           s.HP,
		Shields:      s.Shields,
	}
}

// CoreToHitEvent converts a core.HitEvent to a GORM model.HitEvent.
func CoreToHitEvent(e core.HitEvent) model.HitEvent {
	return model.HitEvent{
		Time:             e.Time,
		EngagementID:     e.EngagementID,
		Frame:            e.Frame,
		AttackerObjectID: nullInt(e.AttackerID),
		VictimObjectID:   e.VictimID,
		Weapon:           e.Weapon,
		HPDamage:         e.HPDamage,
		ShieldDamage:     e.ShieldDamage,
		Distance:         e.Distance,
	}
}

// CoreToKillEvent converts a core.KillEvent to a GORM model.KillEvent.
func CoreToKillEvent(e core.KillEvent) model.KillEvent {
	return model.KillEvent{
		Time:           e.Time,
		EngagementID:   e.EngagementID,
		Frame:          e.Frame,
		VictimObjectID: e.VictimID,
		KillerObjectID: nullInt(e.KillerID),
		Weapon:         e.Weapon,
	}
}
