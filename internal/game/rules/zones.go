package rules

// Zone identifies a kind of zone. Some zones exist once per player, others
// are shared by the whole table.
type Zone string

const (
	ZoneNone        Zone = ""
	ZoneLibrary     Zone = "LIBRARY"
	ZoneHand        Zone = "HAND"
	ZoneGraveyard   Zone = "GRAVEYARD"
	ZoneBattlefield Zone = "BATTLEFIELD"
	ZoneExile       Zone = "EXILE"
	ZoneStack       Zone = "STACK"
)

// IsShared reports whether the zone has a single instance for all players.
func (z Zone) IsShared() bool {
	switch z {
	case ZoneBattlefield, ZoneExile, ZoneStack:
		return true
	default:
		return false
	}
}

// IsValid reports whether z is a known zone kind.
func (z Zone) IsValid() bool {
	switch z {
	case ZoneLibrary, ZoneHand, ZoneGraveyard, ZoneBattlefield, ZoneExile, ZoneStack:
		return true
	default:
		return false
	}
}
