package sim

import "github.com/OCAP2/combatsim/pkg/gamedata"

// Damage is an amount of hp and shields to remove (or restore, when healing).
type Damage struct {
	HP     float64 `json:"hp"`
	Shield float64 `json:"shield"`
}

// Add returns the sum of two damages.
func (d Damage) Add(o Damage) Damage {
	return Damage{HP: d.HP + o.HP, Shield: d.Shield + o.Shield}
}

// Total returns hp plus shield damage.
func (d Damage) Total() float64 { return d.HP + d.Shield }

// MinDamage is the least hp damage an unshielded hit deals.
const MinDamage = 0.5

// Unkillable is returned by VolleysToKill when a weapon can never finish the target.
const Unkillable = -1

var damageRatio = [gamedata.DamageTypeCount][gamedata.UnitSizeCount]float64{
	gamedata.DamageIndependent: {0, 0, 0, 0, 0, 0},
	gamedata.DamageExplosive:   {0, 0.5, 0.75, 1, 0, 0},
	gamedata.DamageConcussive:  {0, 1, 0.5, 0.25, 0, 0},
	gamedata.DamageNormal:      {0, 1, 1, 1, 0, 0},
	gamedata.DamageIgnoreArmor: {0, 1, 1, 1, 0, 0},
	gamedata.DamageNone:        {0, 0, 0, 0, 0, 0},
	gamedata.DamageUnknown:     {0, 0, 0, 0, 0, 0},
}

// DamageRatio returns the share of hp damage a damage type deals to a size class.
func DamageRatio(dt gamedata.DamageType, size gamedata.UnitSize) float64 {
	if dt < 0 || dt >= gamedata.DamageTypeCount || size < 0 || size >= gamedata.UnitSizeCount {
		return 0
	}
	return damageRatio[dt][size]
}

// DamagePerHit returns the damage one attack animation of the weapon deals to the target.
// Each hit of the damage factor drains shields first; hits that reach hp are scaled by
// the size ratio and reduced by armor. Negative hp results are kept as computed.
func DamagePerHit(w *SimWeapon, target *SimUnit) Damage {
	var total Damage
	ratio := DamageRatio(w.Type.DamageType, target.Type.Size)
	shields := target.Shields

	for i := 0; i < w.Type.DamageFactor; i++ {
		raw := float64(w.Type.DamageAmount + w.UpgradeDamage)

		var shieldDmg float64
		if remaining := shields - total.Shield; remaining > 1 {
			raw -= float64(target.ShieldArmor)
			if remaining > raw {
				shieldDmg = raw
			} else {
				shieldDmg = remaining
			}
			raw -= shieldDmg
		}

		var hpDmg float64
		if raw > 0 {
			hpDmg = ratio * (raw - float64(target.Armor))
			if hpDmg < MinDamage && shieldDmg == 0 {
				hpDmg = MinDamage
			}
		}

		total.HP += hpDmg
		total.Shield += shieldDmg
	}
	return total
}

// VolleysToKill counts attack animations needed to bring the target's hp to zero or
// below, ignoring cooldowns. It returns Unkillable when a volley makes no progress.
func VolleysToKill(target SimUnit, w *SimWeapon) int {
	t := target.Clone()
	volleys := 0
	for t.HP > 0 {
		d := DamagePerHit(w, &t)
		if d.HP <= 0 && d.Shield <= 0 {
			return Unkillable
		}
		t.HP -= d.HP
		t.Shields -= d.Shield
		volleys++
	}
	return volleys
}
