package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edtrack/internal/journal"
	"edtrack/internal/ledger"
)

func TestMassacreMissionScenario(t *testing.T) {
	h := newHarness(t)
	h.live("Docked", journal.Fields{"StarSystem": "Origin", "StationName": "Port"})
	h.live("MissionAccepted", massacreAccepted("M1", "Alpha", "Beta", 5))

	for i := 0; i < 5; i++ {
		h.live("Bounty", bounty("Beta"))
	}
	m, ok := h.ledgers.Missions.Get("M1")
	require.True(t, ok)
	assert.Equal(t, 5, m.CurrentCount)
	assert.Equal(t, ledger.MissionActive, m.Status)
	assert.Equal(t, "Origin", m.OriginSystem)
	assert.Equal(t, "Port", m.OriginStation)
	assert.Equal(t, ledger.TargetPirate, m.TargetType)
	assert.True(t, m.Massacre)

	h.live("MissionCompleted", journal.Fields{"MissionID": "M1", "Reward": 2_000_000})
	m, _ = h.ledgers.Missions.Get("M1")
	assert.Equal(t, ledger.MissionCompleted, m.Status)
	require.Len(t, h.ledgers.Missions.History(), 1)
	assert.Equal(t, int64(2_000_000), h.ledgers.Missions.History()[0].Reward)
	assert.Equal(t, int64(50_000), h.ledgers.Bounties.Snapshot().UnclaimedBounties())
}

func TestNumericMissionIDs(t *testing.T) {
	h := newHarness(t)
	fields := massacreAccepted("", "Alpha", "Beta", 2)
	fields["MissionID"] = 985432117
	h.live("MissionAccepted", fields)
	h.live("FactionKillBond", journal.Fields{"AwardingFaction": "Alpha", "VictimFaction": "Beta", "Reward": 4000})
	h.live("MissionAbandoned", journal.Fields{"MissionID": 985432117})

	m, ok := h.ledgers.Missions.Get("985432117")
	require.True(t, ok)
	assert.Equal(t, 1, m.CurrentCount)
	assert.Equal(t, ledger.MissionFailed, m.Status)
	assert.Equal(t, int64(4000), h.ledgers.Bounties.Snapshot().UnclaimedBonds())
}

func TestRedirectReconciliation(t *testing.T) {
	h := newHarness(t)
	h.live("MissionAccepted", massacreAccepted("M1", "Alpha", "Beta", 5))
	for i := 0; i < 3; i++ {
		h.live("Bounty", bounty("Beta"))
	}

	h.live("MissionRedirected", journal.Fields{
		"MissionID":             "M1",
		"NewDestinationSystem":  "Origin",
		"NewDestinationStation": "Port",
	})

	m, _ := h.ledgers.Missions.Get("M1")
	assert.Equal(t, 5, m.CurrentCount)
	assert.Equal(t, ledger.MissionActive, m.Status)
	assert.Equal(t, 3, h.ledgers.Bounties.Snapshot().Kills, "no synthetic kill")
}

func TestEmptyMissionListFailsActive(t *testing.T) {
	h := newHarness(t)
	for _, id := range []string{"A", "B", "C"} {
		h.live("MissionAccepted", massacreAccepted(id, "Alpha", "Beta", 3))
	}

	h.live("Missions", journal.Fields{"Active": []any{}, "Failed": []any{}, "Complete": []any{}})

	for _, m := range h.ledgers.Missions.All() {
		assert.Equal(t, ledger.MissionFailed, m.Status, m.ID)
	}
}

func TestMissionListWithoutActiveKeyKeepsMissions(t *testing.T) {
	h := newHarness(t)
	h.live("MissionAccepted", massacreAccepted("A", "Alpha", "Beta", 3))

	h.live("Missions", journal.Fields{"Failed": []any{}})

	a, _ := h.ledgers.Missions.Get("A")
	assert.Equal(t, ledger.MissionActive, a.Status)
}

func TestMissionListFailedEntries(t *testing.T) {
	h := newHarness(t)
	h.live("MissionAccepted", massacreAccepted("A", "Alpha", "Beta", 3))
	h.live("MissionAccepted", massacreAccepted("B", "Alpha", "Beta", 3))

	h.live("Missions", journal.Fields{
		"Active": []any{map[string]any{"MissionID": "A"}},
		"Failed": []any{map[string]any{"MissionID": "B"}, map[string]any{"MissionID": "gone"}},
	})

	a, _ := h.ledgers.Missions.Get("A")
	b, _ := h.ledgers.Missions.Get("B")
	assert.Equal(t, ledger.MissionActive, a.Status)
	assert.Equal(t, ledger.MissionFailed, b.Status)
}

func TestUnknownMissionIsTolerated(t *testing.T) {
	h := newHarness(t)
	h.live("MissionCompleted", journal.Fields{"MissionID": "never-seen"})
	h.live("MissionRedirected", journal.Fields{"MissionID": "never-seen"})
	assert.Empty(t, h.ledgers.Missions.All())
}

func TestRefinedMineralsSoldWholesale(t *testing.T) {
	h := newHarness(t)
	h.live("Loadout", journal.Fields{"Ship": "python", "CargoCapacity": 64})
	h.live("BuyDrones", journal.Fields{"Type": "Drones", "Count": 20})
	h.live("SupercruiseExit", journal.Fields{"StarSystem": "Borann", "Body": "Borann A 2 A Ring", "BodyType": "PlanetaryRing"})
	h.live("LaunchDrone", journal.Fields{"Type": "Prospector"})
	h.live("ProspectedAsteroid", journal.Fields{"MotherlodeMaterial": "LowTemperatureDiamond"})
	for i := 0; i < 3; i++ {
		h.live("LaunchDrone", journal.Fields{"Type": "Collection"})
		h.live("MiningRefined", journal.Fields{"Type": "$lowtemperaturediamond_name;", "Type_Localised": "Low Temperature Diamonds"})
	}

	assert.Equal(t, int64(3), h.ledgers.Cargo.Quantity("lowtemperaturediamond"))
	assert.Equal(t, int64(16), h.ledgers.Cargo.Quantity(ledger.Limpets))
	cur, ok := h.ledgers.Mining.Current()
	require.True(t, ok)
	assert.Equal(t, 3, cur.TotalRefined())
	assert.Equal(t, 4, cur.LimpetsLaunched)
	assert.Equal(t, 1, cur.Motherlodes)

	h.live("Docked", journal.Fields{"StarSystem": "Borann", "StationName": "Market"})
	_, ok = h.ledgers.Mining.Current()
	assert.False(t, ok)
	assert.Len(t, h.ledgers.Mining.History(), 1)

	// The sale reports one unit; the refined stack goes as a whole.
	h.live("MarketSell", journal.Fields{"Type": "lowtemperaturediamond", "Count": 1})
	assert.Equal(t, int64(0), h.ledgers.Cargo.Quantity("lowtemperaturediamond"))

	h.live("MarketBuy", journal.Fields{"Type": "gold", "Count": 10})
	h.live("MarketSell", journal.Fields{"Type": "gold", "Count": 4})
	assert.Equal(t, int64(6), h.ledgers.Cargo.Quantity("gold"))
	assert.Equal(t, int64(64), h.ledgers.Cargo.Snapshot().MaxCapacity)
}

func TestCargoEventReconciles(t *testing.T) {
	h := newHarness(t)
	h.live("MarketBuy", journal.Fields{"Type": "gold", "Count": 10})
	h.live("EjectCargo", journal.Fields{"Type": "gold", "Count": 12})
	assert.Equal(t, int64(0), h.ledgers.Cargo.Quantity("gold"))
	assert.Equal(t, 1, h.ledgers.Cargo.Discrepancies())

	h.live("Cargo", journal.Fields{
		"Vessel": "Ship",
		"Count":  7,
		"Inventory": []any{
			map[string]any{"Name": "drones", "Name_Localised": "Limpet", "Count": 5},
			map[string]any{"Name": "$painite_name;", "Count": 2},
		},
	})
	snap := h.ledgers.Cargo.Snapshot()
	assert.Equal(t, int64(7), snap.Used)
	assert.Equal(t, "Limpet", snap.Items[0].Name)

	h.live("Cargo", journal.Fields{"Vessel": "SRV", "Count": 0})
	assert.Equal(t, int64(7), h.ledgers.Cargo.Used(), "SRV hold is separate")

	h.live("Cargo", journal.Fields{"Vessel": "Ship", "Count": 0})
	assert.Equal(t, int64(0), h.ledgers.Cargo.Used())

	h.live("CollectCargo", journal.Fields{"Type": "drones"})
	h.live("Died", nil)
	assert.Equal(t, int64(0), h.ledgers.Cargo.Used())
}

func TestMiningSuspendedAcrossRestart(t *testing.T) {
	h := newHarness(t)
	h.live("Commander", journal.Fields{"FID": "F1", "Name": "Jameson"})
	h.live("SupercruiseExit", journal.Fields{"StarSystem": "Sys", "Body": "Ring", "BodyType": "PlanetaryRing"})
	for i := 0; i < 4; i++ {
		h.live("MiningRefined", journal.Fields{"Type": "platinum"})
	}

	h.live("Shutdown", nil)
	assert.Equal(t, ledger.MiningSuspended, h.ledgers.Mining.State())
	assert.False(t, h.ledgers.Commander.Profile().Online)

	h.live("Commander", journal.Fields{"FID": "F1", "Name": "Jameson"})
	cur, ok := h.ledgers.Mining.Current()
	require.True(t, ok)
	assert.True(t, cur.Active)
	assert.Equal(t, 4, cur.TotalRefined())
	assert.Equal(t, ledger.MiningActive, h.ledgers.Mining.State())
}

func TestSupercruiseExitElsewhereDoesNotStartMining(t *testing.T) {
	h := newHarness(t)
	h.live("SupercruiseExit", journal.Fields{"StarSystem": "Sys", "Body": "Sys 1", "BodyType": "Planet"})
	assert.Equal(t, ledger.MiningNone, h.ledgers.Mining.State())

	h.live("SupercruiseExit", journal.Fields{"StarSystem": "Sys", "Body": "Ring", "BodyType": "PlanetaryRing"})
	h.live("StartJump", journal.Fields{"JumpType": "Hyperspace"})
	assert.Equal(t, ledger.MiningNone, h.ledgers.Mining.State())
}

func TestExplorationSaleFlushedOnUndock(t *testing.T) {
	h := newHarness(t)
	h.live("FSDJump", journal.Fields{"StarSystem": "Far Away", "JumpDist": 42.5})
	h.live("FSSDiscoveryScan", journal.Fields{"SystemName": "Far Away", "BodyCount": 12})
	h.live("Docked", journal.Fields{"StarSystem": "Home", "StationName": "Port"})
	h.live("SellExplorationData", journal.Fields{"Systems": []any{"Far Away"}, "BaseValue": 1000, "Bonus": 100, "TotalEarnings": 1100})
	h.live("MultiSellExplorationData", journal.Fields{
		"Discovered":    []any{map[string]any{"SystemName": "Nearby", "NumBodies": 3}},
		"BaseValue":     500,
		"Bonus":         0,
		"TotalEarnings": 500,
	})

	assert.Equal(t, int64(1600), h.ledgers.Exploration.Totals().TotalEarnings)
	assert.Len(t, h.ledgers.Exploration.OnHold(), 2)

	h.live("Undocked", journal.Fields{"StationName": "Port"})
	history := h.ledgers.Exploration.History()
	require.Len(t, history, 1)
	assert.Equal(t, int64(1600), history[0].TotalEarnings)
	assert.Equal(t, 12, history[0].Systems[0].Bodies)
	assert.Empty(t, h.ledgers.Exploration.OnHold())
}

func TestBioSignalsBeforeScanAreMatched(t *testing.T) {
	h := newHarness(t)
	h.live("FSDJump", journal.Fields{"StarSystem": "Bio"})
	h.live("FSSBodySignals", journal.Fields{
		"BodyID":   5,
		"BodyName": "Bio 5",
		"Signals":  []any{map[string]any{"Type": "$SAA_SignalType_Biological;", "Count": 3}},
	})
	assert.Equal(t, 1, h.ledgers.Exploration.Pending())

	h.live("Scan", journal.Fields{"BodyID": 5, "BodyName": "Bio 5", "StarSystem": "Bio", "PlanetClass": "Rocky body"})
	h.live("SAASignalsFound", journal.Fields{
		"BodyID":  5,
		"Signals": []any{map[string]any{"Type": "$SAA_SignalType_Biological;", "Count": 3}},
		"Genuses": []any{map[string]any{"Genus": "$Codex_Ent_Bacterial_Genus_Name;", "Genus_Localised": "Bacterium"}},
	})
	h.live("ScanOrganic", journal.Fields{"Body": 5, "Species_Localised": "Bacterium Cerbrus", "ScanType": "Log"})

	b, ok := h.ledgers.Exploration.Body(5)
	require.True(t, ok)
	assert.Equal(t, 3, b.BioSignals)
	assert.Equal(t, []string{"Bacterium"}, b.Genuses)
	assert.Equal(t, "Log", b.Organics["Bacterium Cerbrus"])
	assert.Equal(t, 0, h.ledgers.Exploration.Pending())
}

func TestPresenceAndTravel(t *testing.T) {
	h := newHarness(t)
	h.live("LoadGame", journal.Fields{"FID": "F1", "Commander": "Jameson", "Ship": "cobramkiii"})
	h.live("Location", journal.Fields{"StarSystem": "Sol", "StationName": "Abraham Lincoln", "Docked": true})
	p := h.ledgers.Commander.Profile()
	assert.Equal(t, "Abraham Lincoln", p.CurrentStation)
	assert.True(t, p.Docked)
	assert.Equal(t, "cobramkiii", p.Ship)

	h.live("Undocked", nil)
	h.live("FSDJump", journal.Fields{"StarSystem": "Alpha Centauri", "JumpDist": 4.38})
	h.live("CarrierJump", journal.Fields{"StarSystem": "Sol", "Docked": true, "StationName": "K7Q-1HT"})
	h.live("Disembark", journal.Fields{"OnStation": true})

	p = h.ledgers.Commander.Profile()
	assert.Equal(t, "Sol", p.CurrentSystem)
	assert.Equal(t, "K7Q-1HT", p.CurrentStation)
	assert.True(t, p.OnFoot)
	assert.Len(t, h.ledgers.Travel.Jumps(), 1)
	assert.Equal(t, 2, h.ledgers.Travel.Systems())

	h.live("Embark", nil)
	assert.False(t, h.ledgers.Commander.Profile().OnFoot)
}

func TestVouchersRedeemed(t *testing.T) {
	h := newHarness(t)
	h.live("Bounty", bounty("Beta"))
	h.live("FactionKillBond", journal.Fields{"AwardingFaction": "Gamma", "VictimFaction": "Delta", "Reward": 500})
	h.live("RedeemVoucher", journal.Fields{"Type": "bounty", "Amount": 10_000, "Factions": []any{map[string]any{"Faction": "Alpha", "Amount": 10_000}}})
	h.live("RedeemVoucher", journal.Fields{"Type": "CombatBond", "Amount": 500, "Faction": "Gamma"})

	snap := h.ledgers.Bounties.Snapshot()
	assert.Zero(t, snap.UnclaimedBounties())
	assert.Zero(t, snap.UnclaimedBonds())
	assert.Equal(t, int64(10_000), snap.RedeemedBounties)
}
