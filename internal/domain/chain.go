package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Block is the head of a chain as seen by the harness.
type Block struct {
	Number    uint64 `json:"number"`
	Timestamp uint64 `json:"timestamp"`
}

// Log is an event emitted by a contract during a transaction.
type Log struct {
	Address common.Address `json:"address"`
	Event   Event          `json:"event"`
}

// Receipt is the outcome of a transaction.
type Receipt struct {
	TxHash       common.Hash    `json:"txHash"`
	From         common.Address `json:"from"`
	To           common.Address `json:"to"`
	Value        *big.Int       `json:"value,omitempty"`
	BlockNumber  uint64         `json:"blockNumber"`
	Status       uint64         `json:"status"`
	RevertReason string         `json:"revertReason,omitempty"`
	Logs         []Log          `json:"logs,omitempty"`
}

const (
	ReceiptStatusFailed     = uint64(0)
	ReceiptStatusSuccessful = uint64(1)
)

// Succeeded reports whether the transaction applied its state changes.
func (r *Receipt) Succeeded() bool {
	return r.Status == ReceiptStatusSuccessful
}

// Events returns the events of the receipt with the given name.
func (r *Receipt) Events(name string) []Event {
	var out []Event
	for _, l := range r.Logs {
		if l.Event != nil && l.Event.EventName() == name {
			out = append(out, l.Event)
		}
	}
	return out
}
