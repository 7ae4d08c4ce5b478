package state

import (
	"bytes"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/thraizz/mage-engine-go/internal/game/rules"
)

// SnapshotVersion is bumped whenever the snapshot layout changes.
const SnapshotVersion = 1

// ZoneSnapshot is one zone in a snapshot.
type ZoneSnapshot struct {
	Key   ZoneKey
	Cards []string
}

// Snapshot is the exported, gob-encodable form of a State. It carries every
// field, including the continuation stack and pending decision, so a game
// can be rebuilt in the middle of a pause.
type Snapshot struct {
	Version         int
	Entities        []Entity
	Zones           []ZoneSnapshot
	TurnOrder       []string
	ActivePlayer    string
	Turn            int
	Phase           rules.Phase
	Step            rules.Step
	FloatingEffects []FloatingEffect
	Continuations   []Continuation
	PendingDecision Decision
}

// Snapshot exports the state. Entities and zones are sorted so equal states
// produce equal snapshots.
func (s *State) Snapshot() Snapshot {
	snap := Snapshot{
		Version:         SnapshotVersion,
		TurnOrder:       s.TurnOrder(),
		ActivePlayer:    s.activePlayer,
		Turn:            s.turn,
		Phase:           s.phase,
		Step:            s.step,
		FloatingEffects: s.FloatingEffects(),
		Continuations:   s.Continuations(),
		PendingDecision: s.pending,
	}

	ids := s.EntityIDs()
	sort.Strings(ids)
	for _, id := range ids {
		snap.Entities = append(snap.Entities, s.entities[id])
	}

	keys := s.ZoneKeys()
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Owner != keys[j].Owner {
			return keys[i].Owner < keys[j].Owner
		}
		return keys[i].Kind < keys[j].Kind
	})
	for _, k := range keys {
		snap.Zones = append(snap.Zones, ZoneSnapshot{Key: k, Cards: s.Zone(k)})
	}
	return snap
}

// FromSnapshot rebuilds a state from its exported form.
func FromSnapshot(snap Snapshot) (*State, error) {
	if snap.Version != SnapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version: %d", snap.Version)
	}
	s := New()
	for _, e := range snap.Entities {
		s.entities[e.ID] = e
	}
	for _, z := range snap.Zones {
		if len(z.Cards) > 0 {
			s.zones[z.Key] = append([]string(nil), z.Cards...)
		}
	}
	s.turnOrder = append([]string(nil), snap.TurnOrder...)
	s.activePlayer = snap.ActivePlayer
	s.turn = snap.Turn
	s.phase = snap.Phase
	s.step = snap.Step
	s.floating = append([]FloatingEffect(nil), snap.FloatingEffects...)
	s.continuations = append([]Continuation(nil), snap.Continuations...)
	s.pending = snap.PendingDecision
	return s, nil
}

// Encode serializes a state with gob.
func Encode(s *State) ([]byte, error) {
	var buf bytes.Buffer
	snap := s.Snapshot()
	if err := gob.NewEncoder(&buf).Encode(&snap); err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode deserializes a state produced by Encode.
func Decode(data []byte) (*State, error) {
	var snap Snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return FromSnapshot(snap)
}

// Checksum computes a SHA-256 over a canonical text form of the state. It is
// independent of map iteration order and of floating-effect timestamps.
func Checksum(s *State) string {
	sum := sha256.Sum256([]byte(canonical(s.Snapshot())))
	return hex.EncodeToString(sum[:])
}

// VerifyChecksum reports whether s matches a previously computed checksum.
func VerifyChecksum(s *State, expected string) bool {
	return Checksum(s) == expected
}

func canonical(snap Snapshot) string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "GAME:%d|%s|%d|%s|%s\n", snap.Version, snap.ActivePlayer, snap.Turn, snap.Phase, snap.Step)
	fmt.Fprintf(&buf, "ORDER:%s\n", strings.Join(snap.TurnOrder, ","))

	for _, e := range snap.Entities {
		fmt.Fprintf(&buf, "ENTITY:%s\n", e.ID)
		if e.Card != nil {
			fmt.Fprintf(&buf, "  CARD:%s|%s|%s\n", e.Card.Name, e.Card.OwnerID, strings.Join(e.Card.Types, ","))
		}
		if e.Controller != nil {
			fmt.Fprintf(&buf, "  CONTROLLER:%s\n", e.Controller.PlayerID)
		}
		if e.Player != nil {
			fmt.Fprintf(&buf, "  PLAYER:%s\n", e.Player.Name)
		}
		if e.Life != nil {
			fmt.Fprintf(&buf, "  LIFE:%d\n", e.Life.Life)
		}
		if e.Damage != nil {
			fmt.Fprintf(&buf, "  DAMAGE:%d\n", e.Damage.Marked)
		}
	}

	// zone order matters
	for _, z := range snap.Zones {
		fmt.Fprintf(&buf, "ZONE:%s:%s\n", z.Key, strings.Join(z.Cards, ","))
	}

	for _, f := range snap.FloatingEffects {
		fmt.Fprintf(&buf, "FLOATING:%s|%T|%s|%s|%s|%s\n",
			f.ID, f.Modification, f.Duration, f.SourceID, f.ControllerID, strings.Join(f.AffectedPlayers, ","))
	}

	for i, c := range snap.Continuations {
		fmt.Fprintf(&buf, "CONTINUATION:%d:%T|%s\n", i, c, c.DecisionID())
	}

	if d := snap.PendingDecision; d != nil {
		h := d.Header()
		fmt.Fprintf(&buf, "DECISION:%s|%s|%s|%s\n", d.Kind(), h.ID, h.PlayerID, h.Context.SourceID)
		switch v := d.(type) {
		case CardSelectionDecision:
			fmt.Fprintf(&buf, "  OPTIONS:%s|%d|%d|%t\n", strings.Join(v.Options, ","), v.Min, v.Max, v.Ordered)
		case SearchLibraryDecision:
			fmt.Fprintf(&buf, "  OPTIONS:%s|%d|%d\n", strings.Join(v.Options, ","), v.Min, v.Max)
		case NumberDecision:
			fmt.Fprintf(&buf, "  RANGE:%d|%d\n", v.Min, v.Max)
		}
	}

	return buf.String()
}
