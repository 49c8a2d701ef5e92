package ingest

import (
	"fmt"
	"strings"
	"time"

	"edtrack/internal/journal"
	"edtrack/internal/ledger"
	"edtrack/internal/log"
	"edtrack/internal/metrics"
)

// handlers holds the per-kind reconciliation logic. Each method reads one
// record and touches only the ledgers that record concerns.
type handlers struct {
	l *Ledgers
	m *metrics.Metrics
}

// registerHandlers fills the dispatch table
func registerHandlers(r *Router, l *Ledgers, m *metrics.Metrics) {
	h := &handlers{l: l, m: m}

	// Presence
	r.AddHandlerFunc("Commander", h.handleCommander)
	r.AddHandlerFunc("LoadGame", h.handleLoadGame)
	r.AddHandlerFunc("Shutdown", h.handleShutdown)
	r.AddHandlerFunc("Location", h.handleLocation)
	r.AddHandlerFunc("Embark", h.handleEmbark)
	r.AddHandlerFunc("Disembark", h.handleDisembark)
	r.AddHandlerFunc("Died", h.handleDied)

	// Travel
	r.AddHandlerFunc("FSDJump", h.handleFSDJump)
	r.AddHandlerFunc("CarrierJump", h.handleCarrierJump)
	r.AddHandlerFunc("StartJump", h.handleEndMining)
	r.AddHandlerFunc("SupercruiseEntry", h.handleEndMining)
	r.AddHandlerFunc("SupercruiseExit", h.handleSupercruiseExit)
	r.AddHandlerFunc("Docked", h.handleDocked)
	r.AddHandlerFunc("Undocked", h.handleUndocked)

	// Missions
	r.AddHandlerFunc("MissionAccepted", h.handleMissionAccepted)
	r.AddHandlerFunc("MissionRedirected", h.handleMissionRedirected)
	r.AddHandlerFunc("MissionCompleted", h.handleMissionCompleted)
	r.AddHandlerFunc("MissionAbandoned", h.handleMissionFailed)
	r.AddHandlerFunc("MissionFailed", h.handleMissionFailed)
	r.AddHandlerFunc("MissionExpired", h.handleMissionFailed)
	r.AddHandlerFunc("Missions", h.handleMissions)

	// Combat
	r.AddHandlerFunc("Bounty", h.handleBounty)
	r.AddHandlerFunc("FactionKillBond", h.handleFactionKillBond)
	r.AddHandlerFunc("RedeemVoucher", h.handleRedeemVoucher)

	// Cargo and mining
	r.AddHandlerFunc("Loadout", h.handleLoadout)
	r.AddHandlerFunc("Cargo", h.handleCargo)
	r.AddHandlerFunc("MarketBuy", h.handleMarketBuy)
	r.AddHandlerFunc("MarketSell", h.handleMarketSell)
	r.AddHandlerFunc("EjectCargo", h.handleEjectCargo)
	r.AddHandlerFunc("CollectCargo", h.handleCollectCargo)
	r.AddHandlerFunc("BuyDrones", h.handleBuyDrones)
	r.AddHandlerFunc("SellDrones", h.handleSellDrones)
	r.AddHandlerFunc("LaunchDrone", h.handleLaunchDrone)
	r.AddHandlerFunc("MiningRefined", h.handleMiningRefined)
	r.AddHandlerFunc("ProspectedAsteroid", h.handleProspectedAsteroid)

	// Exploration
	r.AddHandlerFunc("SellExplorationData", h.handleSellExplorationData)
	r.AddHandlerFunc("MultiSellExplorationData", h.handleMultiSellExplorationData)
	r.AddHandlerFunc("FSSDiscoveryScan", h.handleFSSDiscoveryScan)
	r.AddHandlerFunc("Scan", h.handleScan)
	r.AddHandlerFunc("FSSBodySignals", h.handleBodySignals)
	r.AddHandlerFunc("SAASignalsFound", h.handleBodySignals)
	r.AddHandlerFunc("ScanOrganic", h.handleScanOrganic)
}

// ============================================================================
// Presence
// ============================================================================

func (h *handlers) handleCommander(rec journal.Record) error {
	h.l.Commander.Announce(rec.String("FID"), rec.String("Name"))
	if h.l.Mining.Resume() {
		log.Info("mining session resumed")
	}
	return nil
}

func (h *handlers) handleLoadGame(rec journal.Record) error {
	h.l.Commander.Announce(rec.String("FID"), rec.String("Commander"))
	h.l.Commander.SetShip(rec.String("Ship"))
	return nil
}

func (h *handlers) handleShutdown(rec journal.Record) error {
	h.l.Commander.SetOffline()
	if h.l.Mining.Suspend() {
		log.Info("mining session suspended while offline")
	}
	h.l.Exploration.Flush(rec.Timestamp)
	return nil
}

func (h *handlers) handleLocation(rec journal.Record) error {
	system := rec.String("StarSystem")
	docked := rec.Bool("Docked")
	station := ""
	if docked {
		station = rec.String("StationName")
	}
	h.l.Commander.SetLocation(system, station, docked)
	h.l.Travel.SetPosition(system)
	h.visitSystem(system, rec.Timestamp)
	return nil
}

func (h *handlers) handleEmbark(journal.Record) error {
	h.l.Commander.SetOnFoot(false)
	return nil
}

func (h *handlers) handleDisembark(journal.Record) error {
	h.l.Commander.SetOnFoot(true)
	return nil
}

func (h *handlers) handleDied(rec journal.Record) error {
	h.l.Cargo.Reset()
	h.l.Bounties.LoseUnclaimed()
	h.l.Mining.End(rec.Timestamp)
	return nil
}

// ============================================================================
// Travel
// ============================================================================

func (h *handlers) handleFSDJump(rec journal.Record) error {
	system := rec.String("StarSystem")
	if system == "" {
		return fmt.Errorf("jump without StarSystem")
	}
	h.l.Mining.End(rec.Timestamp)
	h.l.Commander.Jumped(system)
	h.l.Travel.RecordJump(system, rec.Float("JumpDist"), rec.Timestamp)
	h.visitSystem(system, rec.Timestamp)
	return nil
}

func (h *handlers) handleCarrierJump(rec journal.Record) error {
	system := rec.String("StarSystem")
	h.l.Mining.End(rec.Timestamp)
	docked := rec.Bool("Docked")
	station := ""
	if docked {
		station = rec.String("StationName")
	}
	h.l.Commander.SetLocation(system, station, docked)
	h.l.Travel.SetPosition(system)
	h.visitSystem(system, rec.Timestamp)
	return nil
}

// handleEndMining closes the mining session on any departure from the ring
func (h *handlers) handleEndMining(rec journal.Record) error {
	h.l.Mining.End(rec.Timestamp)
	return nil
}

func (h *handlers) handleSupercruiseExit(rec journal.Record) error {
	if rec.String("BodyType") != "PlanetaryRing" {
		return nil
	}
	h.l.Mining.Start(rec.String("StarSystem"), rec.String("Body"), rec.Timestamp)
	return nil
}

func (h *handlers) handleDocked(rec journal.Record) error {
	h.l.Mining.End(rec.Timestamp)
	h.l.Commander.Dock(rec.String("StarSystem"), rec.String("StationName"))
	return nil
}

func (h *handlers) handleUndocked(rec journal.Record) error {
	h.l.Commander.Undock()
	h.l.Exploration.Flush(rec.Timestamp)
	return nil
}

// visitSystem moves the exploration scope and publishes the pending gauge
func (h *handlers) visitSystem(system string, at time.Time) {
	h.l.Exploration.VisitSystem(system, at)
	h.m.SetPendingMatches(h.l.Exploration.Pending())
}

// ============================================================================
// Missions
// ============================================================================

func (h *handlers) handleMissionAccepted(rec journal.Record) error {
	id := rec.ID("MissionID")
	if id == "" {
		return fmt.Errorf("mission accepted without MissionID")
	}

	name := rec.String("Name")
	massacre, wing := ledger.ClassifyMission(name)
	target := rec.Int("KillCount")
	if target == 0 {
		target = rec.Int("Count")
	}

	profile := h.l.Commander.Profile()
	m := ledger.Mission{
		ID:                 id,
		Name:               name,
		Faction:            rec.String("Faction"),
		TargetFaction:      rec.String("TargetFaction"),
		TargetType:         ledger.ParseTargetType(rec.String("TargetType")),
		OriginSystem:       profile.CurrentSystem,
		OriginStation:      profile.CurrentStation,
		DestinationSystem:  rec.String("DestinationSystem"),
		DestinationStation: rec.String("DestinationStation"),
		TargetCount:        int(target),
		Reward:             rec.Int("Reward"),
		AcceptedAt:         rec.Timestamp,
		Wing:               wing || rec.Bool("Wing"),
		Massacre:           massacre,
	}
	if expiry := rec.String("Expiry"); expiry != "" {
		if ts, err := time.Parse(time.RFC3339, expiry); err == nil {
			m.Expiry = ts.UTC()
		}
	}
	return h.l.Missions.Accept(m)
}

func (h *handlers) handleMissionRedirected(rec journal.Record) error {
	id := rec.ID("MissionID")
	corrected, err := h.l.Missions.Redirect(id, rec.String("NewDestinationSystem"), rec.String("NewDestinationStation"))
	if err != nil {
		return fmt.Errorf("redirect mission %s: %w", id, err)
	}
	if corrected {
		log.Info("massacre mission count corrected on redirect", "mission", id)
	}
	return nil
}

func (h *handlers) handleMissionCompleted(rec journal.Record) error {
	id := rec.ID("MissionID")
	if err := h.l.Missions.Complete(id, rec.Int("Reward"), rec.Timestamp); err != nil {
		return fmt.Errorf("complete mission %s: %w", id, err)
	}
	return nil
}

func (h *handlers) handleMissionFailed(rec journal.Record) error {
	id := rec.ID("MissionID")
	if err := h.l.Missions.Fail(id); err != nil {
		return fmt.Errorf("%s %s: %w", strings.ToLower(strings.TrimPrefix(rec.Kind, "Mission")), id, err)
	}
	return nil
}

// handleMissions reconciles against the game's own mission list
func (h *handlers) handleMissions(rec journal.Record) error {
	if rec.Has("Active") && len(rec.List("Active")) == 0 {
		if n := h.l.Missions.FailAllActive(); n > 0 {
			log.Info("game reports no active missions", "failed", n)
		}
	}
	for _, f := range rec.List("Failed") {
		// Already closed or never seen; nothing to reconcile.
		_ = h.l.Missions.Fail(f.ID("MissionID"))
	}
	return nil
}

// ============================================================================
// Combat
// ============================================================================

func (h *handlers) handleBounty(rec journal.Record) error {
	rewards := make(map[string]int64)
	for _, r := range rec.List("Rewards") {
		rewards[r.String("Faction")] += r.Int("Reward")
	}
	if len(rewards) == 0 && rec.Has("Reward") {
		rewards[rec.String("Faction")] += rec.Int("Reward")
	}
	h.l.Bounties.RecordBounty(rewards)
	h.l.Missions.RecordKill(rec.String("VictimFaction"))
	return nil
}

func (h *handlers) handleFactionKillBond(rec journal.Record) error {
	h.l.Bounties.RecordBond(rec.String("AwardingFaction"), rec.Int("Reward"))
	h.l.Missions.RecordKill(rec.String("VictimFaction"))
	return nil
}

func (h *handlers) handleRedeemVoucher(rec journal.Record) error {
	var factions []string
	for _, f := range rec.List("Factions") {
		if name := f.String("Faction"); name != "" {
			factions = append(factions, name)
		}
	}
	if name := rec.String("Faction"); name != "" {
		factions = append(factions, name)
	}
	h.l.Bounties.Redeem(rec.String("Type"), factions, rec.Int("Amount"))
	return nil
}

// ============================================================================
// Cargo and mining
// ============================================================================

func (h *handlers) handleLoadout(rec journal.Record) error {
	h.l.Cargo.SetCapacity(rec.Int("CargoCapacity"))
	h.l.Commander.SetShip(rec.String("Ship"))
	return nil
}

// handleCargo applies the game's own view of the hold
func (h *handlers) handleCargo(rec journal.Record) error {
	if vessel := rec.String("Vessel"); vessel != "" && vessel != "Ship" {
		return nil
	}

	count, hasCount := rec.IntOK("Count")
	if rec.Has("Inventory") {
		inventory := make(map[string]int64)
		for _, item := range rec.List("Inventory") {
			name := item.String("Name")
			inventory[name] += item.Int("Count")
			h.l.Cargo.SetDisplayName(name, item.String("Name_Localised"))
		}
		h.l.Cargo.Replace(inventory)
	} else if hasCount && count == 0 {
		h.l.Cargo.Reset()
	}
	if hasCount {
		h.l.Cargo.SetReported(count)
	}
	return nil
}

func (h *handlers) handleMarketBuy(rec journal.Record) error {
	h.l.Cargo.Add(rec.String("Type"), rec.Int("Count"))
	return nil
}

// handleMarketSell drops refined minerals wholesale; the sale count for
// them is not trustworthy
func (h *handlers) handleMarketSell(rec journal.Record) error {
	commodity := rec.String("Type")
	if h.l.Cargo.IsRefined(commodity) {
		h.l.Cargo.RemoveAll(commodity)
		return nil
	}
	h.l.Cargo.Remove(commodity, rec.Int("Count"))
	return nil
}

func (h *handlers) handleEjectCargo(rec journal.Record) error {
	h.l.Cargo.Remove(rec.String("Type"), rec.Int("Count"))
	return nil
}

func (h *handlers) handleCollectCargo(rec journal.Record) error {
	h.l.Cargo.Add(rec.String("Type"), 1)
	return nil
}

func (h *handlers) handleBuyDrones(rec journal.Record) error {
	h.l.Cargo.Add(ledger.Limpets, rec.Int("Count"))
	return nil
}

func (h *handlers) handleSellDrones(rec journal.Record) error {
	h.l.Cargo.Remove(ledger.Limpets, rec.Int("Count"))
	return nil
}

func (h *handlers) handleLaunchDrone(journal.Record) error {
	h.l.Cargo.Remove(ledger.Limpets, 1)
	h.l.Mining.RecordLimpet()
	return nil
}

func (h *handlers) handleMiningRefined(rec journal.Record) error {
	mineral := rec.String("Type")
	if mineral == "" {
		return fmt.Errorf("refined without Type")
	}
	h.l.Cargo.MarkRefined(mineral)
	h.l.Cargo.SetDisplayName(mineral, rec.String("Type_Localised"))
	h.l.Cargo.Add(mineral, 1)
	h.l.Mining.RecordRefined(mineral)
	return nil
}

func (h *handlers) handleProspectedAsteroid(rec journal.Record) error {
	h.l.Mining.RecordProspect(rec.String("MotherlodeMaterial") != "")
	return nil
}

// ============================================================================
// Exploration
// ============================================================================

func (h *handlers) handleSellExplorationData(rec journal.Record) error {
	h.l.Exploration.AddToCurrentSale(
		rec.Strings("Systems"),
		rec.Int("BaseValue"),
		rec.Int("Bonus"),
		rec.Int("TotalEarnings"),
		rec.Timestamp,
	)
	return nil
}

func (h *handlers) handleMultiSellExplorationData(rec journal.Record) error {
	var systems []string
	for _, d := range rec.List("Discovered") {
		systems = append(systems, d.String("SystemName"))
	}
	h.l.Exploration.AddToCurrentSale(
		systems,
		rec.Int("BaseValue"),
		rec.Int("Bonus"),
		rec.Int("TotalEarnings"),
		rec.Timestamp,
	)
	return nil
}

func (h *handlers) handleFSSDiscoveryScan(rec journal.Record) error {
	h.l.Exploration.SetBodyCount(rec.String("SystemName"), int(rec.Int("BodyCount")))
	return nil
}

func (h *handlers) handleScan(rec journal.Record) error {
	id, ok := rec.IntOK("BodyID")
	if !ok {
		return fmt.Errorf("scan without BodyID")
	}
	h.l.Exploration.RegisterBody(ledger.Body{
		ID:          id,
		Name:        rec.String("BodyName"),
		System:      rec.String("StarSystem"),
		PlanetClass: rec.String("PlanetClass"),
	})
	h.m.SetPendingMatches(h.l.Exploration.Pending())
	return nil
}

// handleBodySignals covers both the FSS and the surface scanner reports
func (h *handlers) handleBodySignals(rec journal.Record) error {
	id, ok := rec.IntOK("BodyID")
	if !ok {
		return fmt.Errorf("%s without BodyID", rec.Kind)
	}

	count := 0
	for _, s := range rec.List("Signals") {
		if strings.Contains(s.String("Type"), "Biological") {
			count += int(s.Int("Count"))
		}
	}
	var genuses []string
	for _, g := range rec.List("Genuses") {
		name := g.String("Genus_Localised")
		if name == "" {
			name = g.String("Genus")
		}
		genuses = append(genuses, name)
	}
	if count == 0 && len(genuses) == 0 {
		return nil
	}

	h.l.Exploration.AddBioSignals(ledger.BioSignal{
		BodyID:   id,
		BodyName: rec.String("BodyName"),
		Count:    count,
		Genuses:  genuses,
	})
	h.m.SetPendingMatches(h.l.Exploration.Pending())
	return nil
}

func (h *handlers) handleScanOrganic(rec journal.Record) error {
	id, ok := rec.IntOK("Body")
	if !ok {
		return fmt.Errorf("organic scan without Body")
	}
	species := rec.String("Species_Localised")
	if species == "" {
		species = rec.String("Species")
	}
	h.l.Exploration.AddOrganicScan(ledger.OrganicScan{
		BodyID:   id,
		Species:  species,
		ScanType: rec.String("ScanType"),
	})
	h.m.SetPendingMatches(h.l.Exploration.Pending())
	return nil
}
