package models

import (
	"rifa/src/types"

	"github.com/google/uuid"
)

// Payment records one payment event. TicketID is set for a direct
// single-ticket sale; ParticipantID covers all of that participant's
// reserved tickets in the raffle when the payment is confirmed.
type Payment struct {
	ID            uint                `gorm:"primarykey" json:"id"`
	RaffleID      uint                `json:"raffle_id,omitempty"`
	TicketID      *uint               `json:"ticket_id,omitempty"`
	ParticipantID *uint               `json:"participant_id,omitempty"`
	Amount        float64             `json:"amount"`
	Method        types.PaymentMethod `gorm:"default:'pix'" json:"method,omitempty"`
	Status        types.PaymentStatus `gorm:"default:'pending'" json:"status,omitempty"`
	Notes         *string             `json:"notes,omitempty"`
	ReceiptPath   *string             `json:"receipt_path,omitempty"`
	ProcessedByID *uint               `json:"processed_by,omitempty"`
	Reference     uuid.UUID           `gorm:"type:uuid" json:"reference,omitempty"`

	Raffle      Raffle       `json:"raffle,omitempty"`
	Ticket      *Ticket      `json:"ticket,omitempty"`
	Participant *Participant `json:"participant,omitempty"`
	ProcessedBy *User        `gorm:"foreignKey:processed_by_id" json:"-"`

	types.Timestamps
}
