package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"gorm.io/gorm"
)

type Timestamps struct {
	CreatedAt time.Time      `gorm:"autoCreateTime:nano" json:"created_at,omitempty"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime:nano" json:"updated_at,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty,omitnil"`
}

type JSONB map[string]any

func (a JSONB) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *JSONB) Scan(value any) error {
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	return nil
}

type Metadata map[string]any

type RaffleStatus string

const (
	RAFFLE_ACTIVE    RaffleStatus = "active"
	RAFFLE_PAUSED    RaffleStatus = "paused"
	RAFFLE_CLOSED    RaffleStatus = "closed"
	RAFFLE_CANCELLED RaffleStatus = "cancelled"
)

type TicketStatus string

const (
	TICKET_AVAILABLE TicketStatus = "available"
	TICKET_RESERVED  TicketStatus = "reserved"
	TICKET_SOLD      TicketStatus = "sold"
)

type PaymentStatus string

const (
	PAYMENT_PENDING   PaymentStatus = "pending"
	PAYMENT_CONFIRMED PaymentStatus = "confirmed"
	PAYMENT_CANCELLED PaymentStatus = "cancelled"
	PAYMENT_REJECTED  PaymentStatus = "rejected"
	PAYMENT_REFUNDED  PaymentStatus = "refunded"
)

type PaymentMethod string

const (
	PAYMENT_METHOD_PIX   PaymentMethod = "pix"
	PAYMENT_METHOD_CASH  PaymentMethod = "cash"
	PAYMENT_METHOD_OTHER PaymentMethod = "other"
)

type DrawingStatus string

const (
	DRAWING_SCHEDULED       DrawingStatus = "scheduled"
	DRAWING_PERFORMED       DrawingStatus = "performed"
	DRAWING_CANCELLED       DrawingStatus = "cancelled"
	DRAWING_PRIZE_DELIVERED DrawingStatus = "prize_delivered"
)

const (
	ROLE_ADMIN  = "admin"
	ROLE_SELLER = "seller"
	ROLE_VIEWER = "viewer"
)

type CreateRaffleRequestBody struct {
	Title       string  `json:"title" binding:"required"`
	Prize       string  `json:"prize" binding:"required"`
	Description string  `json:"description,omitempty"`
	TicketPrice float64 `json:"ticket_price" binding:"required,gt=0"`
	TicketCount uint    `json:"ticket_count" binding:"required,min=10,max=100000"`
	StartDate   string  `json:"start_date" binding:"required,ltdate=EndDate" time_format:"2006-01-02 15:04:05 -07:00"`
	EndDate     string  `json:"end_date" binding:"required,bookabledate" time_format:"2006-01-02 15:04:05 -07:00"`
	PixKey      string  `json:"pix_key" binding:"required"`
}

// UpdateRaffleRequestBody enumerates the mutable fields of a raffle.
// TicketCount is accepted only so a resize attempt on a raffle with sold
// tickets can be rejected with an explicit error instead of being dropped.
type UpdateRaffleRequestBody struct {
	Title       *string  `json:"title,omitempty"`
	Prize       *string  `json:"prize,omitempty"`
	Description *string  `json:"description,omitempty"`
	TicketPrice *float64 `json:"ticket_price,omitempty" binding:"omitempty,gt=0"`
	TicketCount *uint    `json:"ticket_count,omitempty" binding:"omitempty,min=10,max=100000"`
	EndDate     *string  `json:"end_date,omitempty" binding:"omitempty,bookabledate" time_format:"2006-01-02 15:04:05 -07:00"`
	PixKey      *string  `json:"pix_key,omitempty"`
	Status      *string  `json:"status,omitempty" binding:"omitempty,oneof=active closed cancelled"`
}

type BuyerInfo struct {
	Name  string `json:"name" binding:"required"`
	Phone string `json:"phone" binding:"required"`
	Email string `json:"email,omitempty"`
}

type ReserveTicketRequestBody struct {
	Buyer         BuyerInfo `json:"buyer" binding:"required"`
	ParticipantID *uint     `json:"participant_id,omitempty"`
}

type SellTicketRequestBody struct {
	Buyer         BuyerInfo `json:"buyer" binding:"required"`
	ParticipantID *uint     `json:"participant_id,omitempty"`
	PriceOverride *float64  `json:"price_override,omitempty" binding:"omitempty,gt=0"`
	Method        string    `json:"method,omitempty" binding:"omitempty,oneof=pix cash other"`
	Notes         string    `json:"notes,omitempty"`
}

type RefundTicketRequestBody struct {
	Reason string `json:"reason" binding:"required"`
}

type CreatePaymentRequestBody struct {
	RaffleID      uint    `json:"raffle_id" binding:"required"`
	ParticipantID uint    `json:"participant_id" binding:"required"`
	Amount        float64 `json:"amount" binding:"required,gt=0"`
	Method        string  `json:"method" binding:"required,oneof=pix cash other"`
	Notes         string  `json:"notes,omitempty"`
}

type PublicReserveRequestBody struct {
	Name     string `json:"name" binding:"required"`
	Phone    string `json:"phone" binding:"required"`
	Email    string `json:"email,omitempty"`
	Quantity uint   `json:"quantity,omitempty" binding:"omitempty,min=1,max=100"`
	Numbers  []uint `json:"numbers,omitempty" binding:"omitempty,min=1,max=100"`
}

type ScheduleDrawingRequestBody struct {
	RaffleID     uint   `json:"raffle_id" binding:"required"`
	ScheduledFor *string `json:"scheduled_for,omitempty" binding:"omitempty,bookabledate" time_format:"2006-01-02 15:04:05 -07:00"`
}

type LoginRequestBody struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RegisterUserRequestBody struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role,omitempty" binding:"omitempty,oneof=admin seller viewer"`
}

type SimpleRequestParams struct {
	ID uint `uri:"id" binding:"required"`
}

type TicketNumberURIParams struct {
	RaffleID uint `uri:"id" binding:"required"`
	Number   uint `uri:"number" binding:"required"`
}

type SlugURIParams struct {
	Slug string `uri:"slug" binding:"required"`
}

// RaffleStatistics is always recomputed from ticket rows; the counters
// cached on the raffle row are a denormalized view only.
type RaffleStatistics struct {
	RaffleID        uint    `json:"raffle_id"`
	Available       uint    `json:"available"`
	Reserved        uint    `json:"reserved"`
	Sold            uint    `json:"sold"`
	Total           uint    `json:"total"`
	AmountCollected float64 `json:"amount_collected"`
	PercentSold     float64 `json:"percent_sold"`
}

type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

type Handler func(payload string)
