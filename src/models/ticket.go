package models

import (
	"database/sql/driver"
	"rifa/src/types"
	"time"
)

type TicketStatus types.TicketStatus

func (self *TicketStatus) Scan(value interface{}) error {
	*self = TicketStatus(value.([]byte))
	return nil
}

func (self TicketStatus) Value() (driver.Value, error) {
	return string(self), nil
}

// Ticket is one numbered unit of a raffle. Exactly one row exists per
// (raffle_id, number) pair for the lifetime of the raffle.
type Ticket struct {
	ID       uint               `gorm:"primarykey" json:"id"`
	RaffleID uint               `gorm:"uniqueIndex:idx_raffle_number" json:"raffle_id,omitempty"`
	Number   uint               `gorm:"uniqueIndex:idx_raffle_number" json:"number"`
	Status   types.TicketStatus `gorm:"default:'available'" json:"status,omitempty"`
	Price    float64            `json:"price"`

	ParticipantID *uint `json:"participant_id,omitempty"`
	SoldByID      *uint `json:"sold_by,omitempty"`

	// Buyer snapshot captured at reservation/sale time, kept independent
	// of the Participant record.
	BuyerName  *string `json:"buyer_name,omitempty"`
	BuyerPhone *string `json:"buyer_phone,omitempty"`
	BuyerEmail *string `json:"buyer_email,omitempty"`

	ReservedAt *time.Time `json:"reserved_at,omitempty"`
	SoldAt     *time.Time `json:"sold_at,omitempty"`
	PaidAt     *time.Time `json:"paid_at,omitempty"`

	Raffle      Raffle       `json:"raffle,omitempty"`
	Participant *Participant `json:"participant,omitempty"`
	SoldBy      *User        `gorm:"foreignKey:sold_by_id" json:"-"`

	types.Timestamps
}
