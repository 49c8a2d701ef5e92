package ledger

import (
	"sync"

	"edtrack/internal/bus"
)

// Profile is the commander's identity and whereabouts
type Profile struct {
	FID            string
	Name           string
	Ship           string
	CurrentSystem  string
	CurrentStation string
	Online         bool
	OnFoot         bool
	Docked         bool
}

// CommanderProfile handles commander state changes and notifies only when
// something actually changed
type CommanderProfile struct {
	mu       sync.RWMutex
	profile  Profile
	notifier Notifier
}

// NewCommanderProfile creates an empty profile
func NewCommanderProfile(n Notifier) *CommanderProfile {
	return &CommanderProfile{notifier: n}
}

// update applies fn under the lock and notifies if the profile changed
func (c *CommanderProfile) update(fn func(p *Profile)) {
	c.mu.Lock()
	before := c.profile
	fn(&c.profile)
	changed := before != c.profile
	c.mu.Unlock()

	if changed {
		notify(c.notifier, bus.ChannelCommander)
	}
}

// Announce records a profile announcement and marks the commander online.
// It returns the FID known before the call.
func (c *CommanderProfile) Announce(fid, name string) string {
	c.mu.RLock()
	previous := c.profile.FID
	c.mu.RUnlock()

	c.update(func(p *Profile) {
		if fid != "" {
			p.FID = fid
		}
		if name != "" {
			p.Name = name
		}
		p.Online = true
	})
	return previous
}

// SetOffline marks the commander as gone (game shut down)
func (c *CommanderProfile) SetOffline() {
	c.update(func(p *Profile) {
		p.Online = false
		p.OnFoot = false
	})
}

// SetLocation sets system and station in one step
func (c *CommanderProfile) SetLocation(system, station string, docked bool) {
	c.update(func(p *Profile) {
		if system != "" {
			p.CurrentSystem = system
		}
		p.CurrentStation = station
		p.Docked = docked
	})
}

// Jumped moves the commander to a new system, away from any station
func (c *CommanderProfile) Jumped(system string) {
	c.SetLocation(system, "", false)
}

// Dock records docking at a station
func (c *CommanderProfile) Dock(system, station string) {
	c.SetLocation(system, station, true)
}

// Undock leaves the station; the station stays known until the next jump
func (c *CommanderProfile) Undock() {
	c.update(func(p *Profile) { p.Docked = false })
}

// SetOnFoot records embarking or disembarking
func (c *CommanderProfile) SetOnFoot(onFoot bool) {
	c.update(func(p *Profile) { p.OnFoot = onFoot })
}

// SetShip records the current ship type
func (c *CommanderProfile) SetShip(ship string) {
	if ship == "" {
		return
	}
	c.update(func(p *Profile) { p.Ship = ship })
}

// Profile returns a copy of the profile
func (c *CommanderProfile) Profile() Profile {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.profile
}

// FID returns the frontier ID, empty if none announced yet
func (c *CommanderProfile) FID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.profile.FID
}

// Reset forgets the profile
func (c *CommanderProfile) Reset() {
	c.update(func(p *Profile) { *p = Profile{} })
}
