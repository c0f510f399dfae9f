package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	TxCreated TxStatus = iota
	TxBroadcastPending
	TxBroadcastedUnconfirmed
	TxConfirmed
	TxExpired
	TxFailed
)

type TxStatus int

func (s TxStatus) String() string {
	switch s {
	case TxCreated:
		return "CREATED"
	case TxBroadcastPending:
		return "BROADCAST_PENDING"
	case TxBroadcastedUnconfirmed:
		return "BROADCASTED_UNCONFIRMED"
	case TxConfirmed:
		return "CONFIRMED"
	case TxExpired:
		return "EXPIRED"
	case TxFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

func (s TxStatus) MarshalText() ([]byte, error) {
	str := s.String()
	if str == "UNKNOWN" {
		return nil, fmt.Errorf("unknown tx status %d", int(s))
	}
	return []byte(str), nil
}

func (s *TxStatus) UnmarshalText(text []byte) error {
	for _, v := range []TxStatus{TxCreated, TxBroadcastPending, TxBroadcastedUnconfirmed, TxConfirmed, TxExpired, TxFailed} {
		if v.String() == string(text) {
			*s = v
			return nil
		}
	}
	return fmt.Errorf("unknown tx status %q", text)
}

func (s TxStatus) IsTerminal() bool {
	switch s {
	case TxConfirmed, TxExpired, TxFailed:
		return true
	case TxCreated, TxBroadcastPending, TxBroadcastedUnconfirmed:
		return false
	default:
		return false
	}
}

// CanTransitionTo reports whether an outgoing transaction may move from s
// to next. Setting the same status again is always allowed.
func (s TxStatus) CanTransitionTo(next TxStatus) bool {
	if s == next {
		return true
	}
	switch s {
	case TxCreated:
		return next != TxCreated
	case TxBroadcastPending:
		return next == TxBroadcastedUnconfirmed || next == TxConfirmed ||
			next == TxExpired || next == TxFailed
	case TxBroadcastedUnconfirmed:
		return next == TxConfirmed || next == TxExpired
	case TxConfirmed, TxExpired, TxFailed:
		return false
	default:
		return false
	}
}

const (
	TxOutgoing TxDirection = iota
	TxIncoming
)

type TxDirection int

func (d TxDirection) String() string {
	switch d {
	case TxOutgoing:
		return "OUTGOING"
	case TxIncoming:
		return "INCOMING"
	default:
		return "UNKNOWN"
	}
}

func (d TxDirection) MarshalText() ([]byte, error) {
	str := d.String()
	if str == "UNKNOWN" {
		return nil, fmt.Errorf("unknown tx direction %d", int(d))
	}
	return []byte(str), nil
}

func (d *TxDirection) UnmarshalText(text []byte) error {
	for _, v := range []TxDirection{TxOutgoing, TxIncoming} {
		if v.String() == string(text) {
			*d = v
			return nil
		}
	}
	return fmt.Errorf("unknown tx direction %q", text)
}

type WalletTx struct {
	Id              string      `json:"id"`
	Address         string      `json:"address"`
	Direction       TxDirection `json:"direction"`
	Status          TxStatus    `json:"status"`
	Amount          uint64      `json:"amount"`
	Fee             uint64      `json:"fee"`
	Recipient       string      `json:"recipient,omitempty"`
	InputNoteIds    []string    `json:"inputNoteIds,omitempty"`
	ReceivedNoteIds []string    `json:"receivedNoteIds,omitempty"`
	ExpectedChange  uint64      `json:"expectedChange,omitempty"`
	ChangeNoteIds   []string    `json:"changeNoteIds,omitempty"`
	TxHash          string      `json:"txHash,omitempty"`
	PriceAtTime     *float64    `json:"priceAtTime,omitempty"`
	FailureReason   string      `json:"failureReason,omitempty"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

func NewOutgoingTx(
	address, recipient string, amount, fee, expectedChange uint64,
	inputs []string, now time.Time,
) WalletTx {
	return WalletTx{
		Id:             uuid.New().String(),
		Address:        address,
		Direction:      TxOutgoing,
		Status:         TxCreated,
		Amount:         amount,
		Fee:            fee,
		Recipient:      recipient,
		InputNoteIds:   append([]string{}, inputs...),
		ExpectedChange: expectedChange,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func NewIncomingTx(address string, note Note, now time.Time) WalletTx {
	return WalletTx{
		Id:              uuid.New().String(),
		Address:         address,
		Direction:       TxIncoming,
		Status:          TxConfirmed,
		Amount:          note.Amount,
		ReceivedNoteIds: []string{note.Id},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func (t WalletTx) IsPending() bool {
	return t.Direction == TxOutgoing && !t.Status.IsTerminal()
}

// AwaitingChange reports whether a confirmed outgoing transaction still
// expects a change note that was not observed yet.
func (t WalletTx) AwaitingChange() bool {
	return t.Direction == TxOutgoing && t.Status == TxConfirmed &&
		t.ExpectedChange > 0 && len(t.ChangeNoteIds) <= 0
}
