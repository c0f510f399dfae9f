package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

const (
	NoteAvailable NoteState = iota
	NoteInFlight
	NoteSpent
)

type NoteState int

func (s NoteState) String() string {
	switch s {
	case NoteAvailable:
		return "AVAILABLE"
	case NoteInFlight:
		return "IN_FLIGHT"
	case NoteSpent:
		return "SPENT"
	default:
		return "UNKNOWN"
	}
}

func (s NoteState) MarshalText() ([]byte, error) {
	str := s.String()
	if str == "UNKNOWN" {
		return nil, fmt.Errorf("unknown note state %d", int(s))
	}
	return []byte(str), nil
}

func (s *NoteState) UnmarshalText(text []byte) error {
	for _, v := range []NoteState{NoteAvailable, NoteInFlight, NoteSpent} {
		if v.String() == string(text) {
			*s = v
			return nil
		}
	}
	return fmt.Errorf("unknown note state %q", text)
}

// NoteName is the pair of opaque name components identifying an output
// on chain.
type NoteName struct {
	First string `json:"first"`
	Last  string `json:"last"`
}

// Id derives the note id. Equal names always produce equal ids.
func (n NoteName) Id() string {
	h := sha256.New()
	h.Write([]byte(n.First))
	h.Write([]byte{0x00})
	h.Write([]byte(n.Last))
	return hex.EncodeToString(h.Sum(nil))
}

// ChainNote is a note as reported by the chain for an address.
type ChainNote struct {
	Name       NoteName
	OriginPage uint64
	Amount     uint64
	DataHash   string
}

func (c ChainNote) Id() string {
	return c.Name.Id()
}

type Note struct {
	Id           string    `json:"id"`
	Name         NoteName  `json:"name"`
	Address      string    `json:"address"`
	OriginPage   uint64    `json:"originPage"`
	Amount       uint64    `json:"amount"`
	DataHash     string    `json:"dataHash"`
	State        NoteState `json:"state"`
	IsChange     bool      `json:"isChange,omitempty"`
	ChangeOf     string    `json:"changeOf,omitempty"`
	PendingTxId  string    `json:"pendingTxId,omitempty"`
	DiscoveredAt time.Time `json:"discoveredAt"`
	SpentAt      time.Time `json:"spentAt,omitempty"`
}

func NewNote(address string, c ChainNote, discoveredAt time.Time) Note {
	return Note{
		Id:           c.Id(),
		Name:         c.Name,
		Address:      address,
		OriginPage:   c.OriginPage,
		Amount:       c.Amount,
		DataHash:     c.DataHash,
		State:        NoteAvailable,
		DiscoveredAt: discoveredAt,
	}
}

func (n Note) IsAvailable() bool {
	return n.State == NoteAvailable
}

func (n Note) IsInFlight() bool {
	return n.State == NoteInFlight
}

func (n Note) IsSpent() bool {
	return n.State == NoteSpent
}
