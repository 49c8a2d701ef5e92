package tui

import (
	"fmt"
	"strings"
	"time"

	"edtrack/internal/ingest"
	"edtrack/internal/ledger"
)

// renderCommander shows identity and whereabouts
func renderCommander(p ledger.Profile) string {
	if p.FID == "" {
		return "[cyan]Waiting for the game to announce a commander[-]"
	}

	var b strings.Builder
	status := "[red]offline[-]"
	if p.Online {
		status = "[green]online[-]"
	}
	fmt.Fprintf(&b, "[yellow]CMDR %s[-] (%s) %s\n", p.Name, p.FID, status)
	if p.Ship != "" {
		fmt.Fprintf(&b, "Ship: %s\n", p.Ship)
	}
	fmt.Fprintf(&b, "System: %s\n", orDash(p.CurrentSystem))
	switch {
	case p.Docked:
		fmt.Fprintf(&b, "Docked at %s\n", p.CurrentStation)
	case p.OnFoot:
		b.WriteString("On foot\n")
	}
	return b.String()
}

// renderMissions lists active massacre progress first, then the rest
func renderMissions(missions []ledger.Mission) string {
	var b strings.Builder
	active := 0
	for _, m := range missions {
		if m.Status != ledger.MissionActive {
			continue
		}
		active++
		if m.Massacre {
			fmt.Fprintf(&b, "%s  [white]%d/%d[-] %s -> %s\n", bar(m.CurrentCount, m.TargetCount, 10), m.CurrentCount, m.TargetCount, m.Faction, m.TargetFaction)
			continue
		}
		fmt.Fprintf(&b, "%s  %s\n", m.Name, orDash(m.DestinationSystem))
	}
	if active == 0 {
		return "[cyan]No active missions[-]"
	}
	return b.String()
}

// renderCargo shows the hold with refined minerals marked
func renderCargo(c ledger.CargoSnapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[yellow]%d/%d t[-]", c.Used, c.MaxCapacity)
	if c.Reported >= 0 && c.Reported != c.Used {
		fmt.Fprintf(&b, " [red](game says %d)[-]", c.Reported)
	}
	b.WriteString("\n")
	for _, item := range c.Items {
		marker := " "
		if item.Refined {
			marker = "*"
		}
		fmt.Fprintf(&b, "%s %-28s %5d\n", marker, item.Name, item.Count)
	}
	return b.String()
}

// renderMining shows the open session or the last finished one
func renderMining(current *ledger.MiningSession, history []ledger.MiningSession, now time.Time) string {
	s := current
	label := "[green]mining[-]"
	if s == nil {
		if len(history) == 0 {
			return "[cyan]No mining session[-]"
		}
		s = &history[len(history)-1]
		label = "[white]last session[-]"
	} else if s.Suspended {
		label = "[yellow]suspended[-]"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s, %s (%s)\n", label, s.Ring, s.System, s.Duration(now).Round(time.Second))
	fmt.Fprintf(&b, "Refined %d  Prospected %d  Motherlodes %d  Limpets %d\n", s.TotalRefined(), s.Prospected, s.Motherlodes, s.LimpetsLaunched)
	for _, m := range s.Minerals() {
		fmt.Fprintf(&b, "  %-24s %d\n", ledger.DisplayName(m), s.Refined[m])
	}
	return b.String()
}

// renderExploration shows the sale on hold and bio signals in the system
func renderExploration(totals ledger.SaleTotals, sales []ledger.ExplorationSale, bodies []ledger.Body) string {
	var b strings.Builder
	fmt.Fprintf(&b, "On hold: %d systems, %s cr\n", totals.Systems, credits(totals.TotalEarnings))
	if n := len(sales); n > 0 {
		fmt.Fprintf(&b, "Last sale: %s cr\n", credits(sales[n-1].TotalEarnings))
	}
	for _, body := range bodies {
		if body.BioSignals == 0 {
			continue
		}
		fmt.Fprintf(&b, "[green]%s[-] %d bio", orDash(body.Name), body.BioSignals)
		if len(body.Genuses) > 0 {
			fmt.Fprintf(&b, " (%s)", strings.Join(body.Genuses, ", "))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// renderCombat shows unclaimed vouchers
func renderCombat(s ledger.BountySnapshot) string {
	return fmt.Sprintf("Kills %d\nBounties %s cr\nBonds %s cr\n", s.Kills, credits(s.UnclaimedBounties()), credits(s.UnclaimedBonds()))
}

// renderAll builds every panel from one snapshot
func renderAll(s ingest.State, now time.Time) map[string]string {
	return map[string]string{
		panelCommander:   renderCommander(s.Profile),
		panelMissions:    renderMissions(s.Missions),
		panelCargo:       renderCargo(s.Cargo),
		panelMining:      renderMining(s.Mining, s.MiningHistory, now),
		panelExploration: renderExploration(s.SaleTotals, s.Sales, s.Bodies),
		panelCombat:      renderCombat(s.Combat),
	}
}

func bar(n, total, width int) string {
	if total <= 0 {
		return strings.Repeat("-", width)
	}
	filled := n * width / total
	if filled > width {
		filled = width
	}
	return "[green]" + strings.Repeat("#", filled) + "[-]" + strings.Repeat(".", width-filled)
}

// credits formats an amount with thousands separators
func credits(n int64) string {
	s := fmt.Sprintf("%d", n)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	var out []byte
	for i := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
