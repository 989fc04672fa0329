package models

import (
	"log"
	"rifa/src/lib"
	"rifa/src/types"
	"time"
)

type Raffle struct {
	ID          uint               `gorm:"primarykey" json:"id"`
	Title       string             `json:"title,omitempty"`
	Slug        string             `gorm:"uniqueIndex;size:110" json:"slug,omitempty"`
	Prize       string             `json:"prize,omitempty"`
	Description *string            `json:"description,omitempty"`
	TicketPrice float64            `json:"ticket_price"`
	TicketCount uint               `json:"ticket_count"`
	StartDate   time.Time          `json:"start_date,omitempty"`
	EndDate     time.Time          `json:"end_date,omitempty"`
	Status      types.RaffleStatus `gorm:"default:'active'" json:"status,omitempty"`
	PixKey      string             `json:"pix_key,omitempty"`
	ImagePath   *string            `json:"image_path,omitempty"`
	CreatedBy   uint               `json:"created_by,omitempty"`

	// Denormalized totals, refreshed by recount on every sale and refund.
	TicketsSold     uint    `json:"tickets_sold"`
	AmountCollected float64 `json:"amount_collected"`
	PercentSold     float64 `json:"percent_sold"`

	Creator  User      `gorm:"foreignKey:created_by" json:"-"`
	Tickets  []Ticket  `json:"tickets,omitempty"`
	Drawings []Drawing `json:"drawings,omitempty"`

	Stats *types.RaffleStatistics `gorm:"-" json:"stats,omitempty"`

	types.Timestamps
}

func RaffleOpenProducer(id uint, payload map[string]any) error {
	err := lib.KafkaProduceMessage("raffles_open_producer", "raffles-open", payload)
	if err != nil {
		log.Printf("Error on producing message: %s\n", err.Error())
		return err
	}
	return nil
}

func RaffleCloseProducer(id uint, payload map[string]any) error {
	err := lib.KafkaProduceMessage("raffles_close_producer", "raffles-close", payload)
	if err != nil {
		log.Printf("Error on producing message: %s\n", err.Error())
		return err
	}
	return nil
}
