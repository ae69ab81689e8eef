package mmap

// NavigationOverride is a per-unit switch that outranks the map list.
type NavigationOverride int

const (
	OverrideNone NavigationOverride = iota
	OverrideForceEnabled
	OverrideForceDisabled
)

// Unit is what the policy needs to know about a world entity.
type Unit interface {
	// IsPlayerControlled reports whether the unit is a player character.
	IsPlayerControlled() bool
	NavigationOverride() NavigationOverride
	// OwnerIfPet returns the owner of a pet, or nil for anything else.
	OwnerIfPet() Unit
}

// Policy decides whether navigation data should be consulted at all.
type Policy struct {
	enabled  bool
	disabled *DisabledMaps
}

func NewPolicy(enabled bool, disabled *DisabledMaps) *Policy {
	if disabled == nil {
		disabled = NewDisabledMaps()
	}
	return &Policy{enabled: enabled, disabled: disabled}
}

// IsPathfindingEnabled applies, in order: the global switch, player units,
// forced-off units, forced-on units, pets of players, and last the disabled
// map list. unit may be nil.
func (p *Policy) IsPathfindingEnabled(mapID uint32, unit Unit) bool {
	if !p.enabled {
		return false
	}

	if unit != nil {
		// always use mmaps for players
		if unit.IsPlayerControlled() {
			return true
		}

		switch unit.NavigationOverride() {
		case OverrideForceDisabled:
			return false
		case OverrideForceEnabled:
			return true
		}

		// pets of players always path, unless forced off above
		if owner := unit.OwnerIfPet(); owner != nil && owner.IsPlayerControlled() {
			return true
		}
	}

	return !p.disabled.Contains(mapID)
}
