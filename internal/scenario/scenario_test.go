package scenario

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/OCAP2/combatsim/pkg/core"
	"github.com/OCAP2/combatsim/pkg/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const lingsVsMarines = `
name: lings vs marines
tag: bench
maxFrames: 600
region: {x: 0, y: 0, width: 8, height: 8}
players:
  - id: 0
    name: terran
    upgrades: {Terran_Infantry_Armor: 1}
  - id: 1
    name: zerg
    upgrades: {Zerg_Melee_Attacks: 2}
units:
  - {id: 0, player: 0, type: Terran_Marine, position: {x: 40, y: 40}, order: {type: hold}}
  - {id: 1, player: 0, type: Terran_Marine, position: {x: 60, y: 40}, hp: 20}
  - id: 2
    player: 1
    type: Zerg_Zergling
    position: {x: 100, y: 40}
    facing: 3.14
    order: {type: attack, target: 0}
  - {id: 3, player: 1, type: Zerg_Zergling, position: {x: 400, y: 40}, order: {type: attackMove, to: {x: 40, y: 40}}}
`

func TestParse_YAML(t *testing.T) {
	s, err := Parse([]byte(lingsVsMarines))
	require.NoError(t, err)

	assert.Equal(t, "lings vs marines", s.Name)
	assert.Equal(t, "bench", s.Tag)
	assert.Equal(t, 600, s.MaxFrames)
	assert.Equal(t, 8, s.Region.Width)
	require.Len(t, s.Players, 2)
	assert.Equal(t, 2, s.Players[1].Upgrades["Zerg_Melee_Attacks"])
	require.Len(t, s.Units, 4)
	require.NotNil(t, s.Units[1].HP)
	assert.Equal(t, 20, *s.Units[1].HP)
	assert.InDelta(t, 3.14, s.Units[2].Facing, 1e-9)
}

func TestParse_JSON(t *testing.T) {
	s, err := Parse([]byte(`{
		"name": "duel",
		"region": {"x": 1, "y": 1, "width": 2, "height": 2},
		"players": [{"id": 0}, {"id": 1}],
		"units": [
			{"id": 5, "player": 0, "type": "Protoss_Zealot", "position": {"x": 40, "y": 40}},
			{"id": 6, "player": 1, "type": "Zerg_Hydralisk", "position": {"x": 80, "y": 80}}
		]
	}`))
	require.NoError(t, err)
	assert.Equal(t, "duel", s.Name)
	assert.Equal(t, 1, s.Region.X)
	assert.Len(t, s.Units, 2)
}

func TestParse_SchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing units", `{name: x, region: {x: 0, y: 0, width: 1, height: 1}, players: [{id: 0}]}`},
		{"unknown field", `{name: x, extra: 1, region: {x: 0, y: 0, width: 1, height: 1}, players: [{id: 0}], units: [{id: 0, player: 0, type: T, position: {x: 0, y: 0}}]}`},
		{"fractional id", `{name: x, region: {x: 0, y: 0, width: 1, height: 1}, players: [{id: 0}], units: [{id: 0.5, player: 0, type: T, position: {x: 0, y: 0}}]}`},
		{"bad order type", `{name: x, region: {x: 0, y: 0, width: 1, height: 1}, players: [{id: 0}], units: [{id: 0, player: 0, type: T, position: {x: 0, y: 0}, order: {type: cast}}]}`},
		{"bad cooldown rule", `{name: x, cooldownRule: never, region: {x: 0, y: 0, width: 1, height: 1}, players: [{id: 0}], units: [{id: 0, player: 0, type: T, position: {x: 0, y: 0}}]}`},
		{"empty region", `{name: x, region: {x: 0, y: 0, width: 0, height: 1}, players: [{id: 0}], units: [{id: 0, player: 0, type: T, position: {x: 0, y: 0}}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.body))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalid), "got %v", err)
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte("name: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse scenario")
}

func TestLoad_SetsSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(lingsVsMarines), 0644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, s.Source)

	e := s.Engagement()
	assert.Equal(t, path, e.Source)
	assert.Equal(t, "lings vs marines", e.Name)
	assert.Equal(t, 600, e.MaxFrames)
	require.Len(t, e.Players, 2)
	assert.Equal(t, "zerg", e.Players[1].Name)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario")
}

func TestBuild(t *testing.T) {
	s, err := Parse([]byte(lingsVsMarines))
	require.NoError(t, err)

	setup, err := s.Build(nil)
	require.NoError(t, err)

	assert.Equal(t, sim.TilePosition{X: 8, Y: 8}, setup.Region.Size)
	require.Len(t, setup.Units, 4)

	marine := setup.Units[0]
	assert.Equal(t, sim.UnitID(0), marine.ID)
	assert.Equal(t, sim.PlayerID(0), marine.Player)
	assert.Equal(t, 40.0, marine.HP)
	assert.Equal(t, 1, marine.Armor, "infantry armor +1")
	assert.Equal(t, 0, marine.ShieldArmor)
	require.Len(t, marine.Weapons, 2, "marines carry the air and ground slot")

	assert.Equal(t, 20.0, setup.Units[1].HP)

	ling := setup.Units[2]
	require.Len(t, ling.Weapons, 1)
	assert.Equal(t, 2, ling.Weapons[0].UpgradeDamage, "claws +1 per melee level")
	assert.InDelta(t, 3.14, ling.Facing, 1e-9)

	assert.Equal(t, sim.Hold{}, setup.Orders[0])
	assert.Equal(t, sim.Attack{Target: 0}, setup.Orders[2])
	assert.Equal(t, sim.AttackMove{Dest: sim.Position{X: 40, Y: 40}}, setup.Orders[3])
	_, hasOrder := setup.Orders[1]
	assert.False(t, hasOrder)

	// 8 tiles is 256 pixels; the ling at x=400 is outside
	require.Len(t, setup.Warnings, 1)
	assert.Contains(t, setup.Warnings[0], "unit 3")
}

func TestBuild_ShieldUpgrade(t *testing.T) {
	s := &Scenario{
		Name:    "z",
		Players: []PlayerSpec{{ID: 0, Upgrades: map[string]int{string(ShieldUpgrade): 2}}},
		Units:   []UnitSpec{{ID: 0, Player: 0, Type: "Protoss_Zealot"}},
	}
	setup, err := s.Build(nil)
	require.NoError(t, err)
	assert.Equal(t, 2, setup.Units[0].ShieldArmor)
	assert.Equal(t, 60.0, setup.Units[0].Shields)
}

func TestBuild_Errors(t *testing.T) {
	target := 9
	tests := []struct {
		name string
		unit UnitSpec
		want error
	}{
		{"unknown type", UnitSpec{ID: 0, Player: 0, Type: "Terran_Battlecruiser_Mk2"}, ErrUnknownUnitType},
		{"unknown player", UnitSpec{ID: 0, Player: 4, Type: "Terran_Marine"}, ErrUnknownPlayer},
		{"missing target", UnitSpec{ID: 0, Player: 0, Type: "Terran_Marine", Order: &OrderSpec{Type: "attack"}}, ErrInvalidOrder},
		{"target not in scenario", UnitSpec{ID: 0, Player: 0, Type: "Terran_Marine", Order: &OrderSpec{Type: "follow", Target: &target}}, ErrInvalidOrder},
		{"move without destination", UnitSpec{ID: 0, Player: 0, Type: "Terran_Marine", Order: &OrderSpec{Type: "move"}}, ErrInvalidOrder},
		{"patrol without start", UnitSpec{ID: 0, Player: 0, Type: "Terran_Marine", Order: &OrderSpec{Type: "patrol", To: s0()}}, ErrInvalidOrder},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Scenario{Players: []PlayerSpec{{ID: 0}}, Units: []UnitSpec{tt.unit}}
			_, err := s.Build(nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestBuild_Patrol(t *testing.T) {
	s := &Scenario{
		Players: []PlayerSpec{{ID: 0}},
		Units: []UnitSpec{{ID: 0, Player: 0, Type: "Terran_Vulture", Order: &OrderSpec{
			Type: "patrol",
			From: s0(),
			To:   &core.Position{X: 64, Y: 0},
		}}},
	}
	setup, err := s.Build(nil)
	require.NoError(t, err)
	assert.Equal(t, sim.Patrol{From: sim.Position{}, To: sim.Position{X: 64}}, setup.Orders[0])
}

func s0() *core.Position { return &core.Position{} }
