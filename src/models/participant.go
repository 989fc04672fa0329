package models

import "rifa/src/types"

// Participant is a person holding tickets across raffles, identified
// primarily by normalized phone number. The counters are a running cache
// updated only through atomic SQL increments.
type Participant struct {
	ID      uint    `gorm:"primarykey" json:"id"`
	Name    string  `json:"name,omitempty"`
	Phone   string  `gorm:"uniqueIndex;size:20" json:"phone,omitempty"`
	Email   *string `json:"email,omitempty"`
	CPF     *string `gorm:"column:cpf;size:11" json:"cpf,omitempty"`
	Address *string `json:"address,omitempty"`

	TotalTickets uint    `json:"total_tickets"`
	TotalSpent   float64 `json:"total_spent"`

	Tickets  []Ticket  `json:"tickets,omitempty"`
	Payments []Payment `json:"payments,omitempty"`

	types.Timestamps
}
