package models

import "rifa/src/types"

type User struct {
	ID           uint   `gorm:"primarykey" json:"id"`
	Name         string `json:"name,omitempty"`
	Email        string `gorm:"uniqueIndex" json:"email,omitempty"`
	PasswordHash string `json:"-"`
	Role         string `gorm:"default:'seller'" json:"role,omitempty"`

	TicketsSold uint    `json:"tickets_sold"`
	TotalSales  float64 `json:"total_sales"`

	types.Timestamps
}
