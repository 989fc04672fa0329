package models

import (
	"log"
	"rifa/src/lib"
	"rifa/src/types"
	"time"
)

type Drawing struct {
	ID           uint                `gorm:"primarykey" json:"id"`
	RaffleID     uint                `json:"raffle_id,omitempty"`
	Status       types.DrawingStatus `gorm:"default:'scheduled'" json:"status,omitempty"`
	ScheduledFor *time.Time          `json:"scheduled_for,omitempty"`
	PerformedAt  *time.Time          `json:"performed_at,omitempty"`

	// Set once the drawing is performed; a performed drawing never
	// reverts to scheduled.
	WinningNumber   *uint `json:"winning_number,omitempty"`
	WinningTicketID *uint `json:"winning_ticket_id,omitempty"`

	Raffle        Raffle  `json:"raffle,omitempty"`
	WinningTicket *Ticket `gorm:"foreignKey:winning_ticket_id" json:"winning_ticket,omitempty"`

	types.Timestamps
}

func DrawingPerformedProducer(id uint, payload map[string]any) error {
	err := lib.KafkaProduceMessage("drawings_performed_producer", "drawings-performed", payload)
	if err != nil {
		log.Printf("Error on producing message: %s\n", err.Error())
		return err
	}
	return nil
}
