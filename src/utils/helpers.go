package utils

import (
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math"
	"math/big"
	"rifa/src/config"
	"rifa/src/db"
	"rifa/src/models"
	"rifa/src/models/scopes"
	"rifa/src/types"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// MakeSlugBase normalizes a raffle title into a URL-safe slug base,
// truncated before the collision suffix is appended.
func MakeSlugBase(title string) string {
	s := slug.Make(title)
	if len(s) > config.SLUG_MAX_LEN {
		s = s[:config.SLUG_MAX_LEN]
		s = strings.TrimRight(s, "-")
	}
	return s
}

func MakeRaffleSlug(tx *gorm.DB, title string) (string, error) {
	base := MakeSlugBase(title)
	candidate := base
	for i := 1; ; i++ {
		var count int64
		if err := tx.
			Model(&models.Raffle{}).
			Where("slug = ?", candidate).
			Count(&count).
			Error; err != nil {
			return "", err
		}
		if count == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}

// CreateNewRaffle persists the raffle and materializes its full ticket
// set in one transaction. Either everything exists afterwards or nothing
// does.
func CreateNewRaffle(params *types.CreateRaffleRequestBody, creatorId uint) (uint, error) {
	startDate, err := time.Parse(config.TIME_PARSE_FORMAT, params.StartDate)
	if err != nil {
		log.Printf("Error parsing start_date: %s\n", err.Error())
		return 0, err
	}
	endDate, err := time.Parse(config.TIME_PARSE_FORMAT, params.EndDate)
	if err != nil {
		log.Printf("Error parsing end_date: %s\n", err.Error())
		return 0, err
	}
	if !startDate.Before(endDate) {
		return 0, errors.New("start_date must be before end_date")
	}

	raffle := models.Raffle{
		Title:       params.Title,
		Prize:       params.Prize,
		TicketPrice: params.TicketPrice,
		TicketCount: params.TicketCount,
		StartDate:   startDate,
		EndDate:     endDate,
		PixKey:      params.PixKey,
		Status:      types.RAFFLE_ACTIVE,
		CreatedBy:   creatorId,
	}
	if params.Description != "" {
		raffle.Description = &params.Description
	}

	db := db.GetDb()
	err = db.Transaction(func(tx *gorm.DB) error {
		slug, err := MakeRaffleSlug(tx, params.Title)
		if err != nil {
			return err
		}
		raffle.Slug = slug
		if err := tx.Create(&raffle).Error; err != nil {
			return err
		}
		tickets := make([]models.Ticket, 0, params.TicketCount)
		for n := uint(1); n <= params.TicketCount; n++ {
			tickets = append(tickets, models.Ticket{
				RaffleID: raffle.ID,
				Number:   n,
				Status:   types.TICKET_AVAILABLE,
				Price:    params.TicketPrice,
			})
		}
		if err := tx.CreateInBatches(&tickets, 500).Error; err != nil {
			log.Printf("Error materializing tickets for raffle [%d]: %s\n", raffle.ID, err.Error())
			return err
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return raffle.ID, nil
}

func GetRaffle(id uint) (*models.Raffle, error) {
	var raffle models.Raffle
	db := db.GetDb()
	if err := db.Model(&models.Raffle{}).Where(&models.Raffle{ID: id}).First(&raffle).Error; err != nil {
		return nil, fmt.Errorf("%w: raffle %d", types.ErrNotFound, id)
	}
	return &raffle, nil
}

func GetRaffleBySlug(slug string) (*models.Raffle, error) {
	var raffle models.Raffle
	db := db.GetDb()
	if err := db.Model(&models.Raffle{}).Where("slug = ?", slug).First(&raffle).Error; err != nil {
		return nil, fmt.Errorf("%w: raffle %q", types.ErrNotFound, slug)
	}
	return &raffle, nil
}

// GetRaffleBySlugOrID resolves a public raffle reference, accepting
// either the slug or the numeric id.
func GetRaffleBySlugOrID(ref string) (*models.Raffle, error) {
	raffle, err := GetRaffleBySlug(ref)
	if err == nil {
		return raffle, nil
	}
	if id, convErr := strconv.ParseUint(ref, 10, 64); convErr == nil {
		return GetRaffle(uint(id))
	}
	return nil, err
}

func requireActiveRaffle(tx *gorm.DB, raffleId uint) (*models.Raffle, error) {
	var raffle models.Raffle
	if err := tx.Where(&models.Raffle{ID: raffleId}).First(&raffle).Error; err != nil {
		return nil, fmt.Errorf("%w: raffle %d", types.ErrNotFound, raffleId)
	}
	if raffle.Status != types.RAFFLE_ACTIVE {
		return nil, fmt.Errorf("%w: raffle is %s, not active", types.ErrInvalidState, raffle.Status)
	}
	return &raffle, nil
}

// RecountRaffleAggregates refreshes the raffle's denormalized totals
// from the ticket rows. Recounting instead of incrementing keeps the
// cache drift-free at the cost of an extra aggregate query.
func RecountRaffleAggregates(tx *gorm.DB, raffleId uint) error {
	var raffle models.Raffle
	if err := tx.Select("id", "ticket_count").Where(&models.Raffle{ID: raffleId}).First(&raffle).Error; err != nil {
		return err
	}
	var sold int64
	if err := tx.
		Model(&models.Ticket{}).
		Where("raffle_id = ? AND status = ?", raffleId, types.TICKET_SOLD).
		Count(&sold).
		Error; err != nil {
		return err
	}
	var collected float64
	if err := tx.
		Model(&models.Ticket{}).
		Where("raffle_id = ? AND status = ?", raffleId, types.TICKET_SOLD).
		Select("COALESCE(SUM(price), 0)").
		Scan(&collected).
		Error; err != nil {
		return err
	}
	percent := 0.0
	if raffle.TicketCount > 0 {
		percent = Round2(float64(sold) / float64(raffle.TicketCount) * 100)
	}
	return tx.
		Model(&models.Raffle{}).
		Where("id = ?", raffleId).
		Updates(map[string]any{
			"tickets_sold":     sold,
			"amount_collected": collected,
			"percent_sold":     percent,
		}).Error
}

func buyerSnapshot(buyer *types.BuyerInfo) map[string]any {
	phone := NormalizePhone(buyer.Phone)
	snapshot := map[string]any{
		"buyer_name":  buyer.Name,
		"buyer_phone": phone,
	}
	if buyer.Email != "" {
		snapshot["buyer_email"] = buyer.Email
	}
	return snapshot
}

// ReserveTicket places a hold on one ticket. The transition is a single
// conditional UPDATE keyed on the current status, so two concurrent
// requests for the same number cannot both succeed.
func ReserveTicket(raffleId uint, number uint, buyer *types.BuyerInfo, participantId *uint) (*models.Ticket, error) {
	var ticket models.Ticket
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		if _, err := requireActiveRaffle(tx, raffleId); err != nil {
			return err
		}
		now := time.Now()
		values := buyerSnapshot(buyer)
		values["status"] = types.TICKET_RESERVED
		values["reserved_at"] = now
		if participantId != nil {
			values["participant_id"] = *participantId
		}
		res := tx.
			Model(&models.Ticket{}).
			Where("raffle_id = ? AND number = ? AND status = ?", raffleId, number, types.TICKET_AVAILABLE).
			Updates(values)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: ticket not found or not available", types.ErrInvalidState)
		}
		return tx.
			Where("raffle_id = ? AND number = ?", raffleId, number).
			First(&ticket).
			Error
	})
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// SellTicket sells one ticket directly or completes a reservation. A
// confirmed Payment record is written in the same transaction and the
// raffle aggregates are refreshed by recount.
func SellTicket(raffleId uint, number uint, params *types.SellTicketRequestBody, sellerId uint) (*models.Ticket, error) {
	var ticket models.Ticket
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		raffle, err := requireActiveRaffle(tx, raffleId)
		if err != nil {
			return err
		}
		price := raffle.TicketPrice
		if params.PriceOverride != nil {
			price = *params.PriceOverride
		}
		method := types.PaymentMethod(params.Method)
		if method == "" {
			method = types.PAYMENT_METHOD_PIX
		}

		now := time.Now()
		values := buyerSnapshot(&params.Buyer)
		values["status"] = types.TICKET_SOLD
		values["price"] = price
		values["sold_at"] = now
		values["paid_at"] = now
		values["sold_by_id"] = sellerId
		if params.ParticipantID != nil {
			values["participant_id"] = *params.ParticipantID
		}
		res := tx.
			Model(&models.Ticket{}).
			Where("raffle_id = ? AND number = ? AND status IN (?)", raffleId, number, []types.TicketStatus{
				types.TICKET_AVAILABLE,
				types.TICKET_RESERVED,
			}).
			Updates(values)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: ticket not found or not available", types.ErrInvalidState)
		}
		if err := tx.
			Where("raffle_id = ? AND number = ?", raffleId, number).
			First(&ticket).
			Error; err != nil {
			return err
		}

		payment := models.Payment{
			RaffleID:      raffleId,
			TicketID:      &ticket.ID,
			ParticipantID: ticket.ParticipantID,
			Amount:        price,
			Method:        method,
			Status:        types.PAYMENT_CONFIRMED,
			ProcessedByID: &sellerId,
			Reference:     uuid.New(),
		}
		if params.Notes != "" {
			payment.Notes = &params.Notes
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}

		if err := RecountRaffleAggregates(tx, raffleId); err != nil {
			return err
		}
		if ticket.ParticipantID != nil {
			if err := tx.
				Model(&models.Participant{}).
				Where("id = ?", *ticket.ParticipantID).
				Updates(map[string]any{
					"total_tickets": gorm.Expr("total_tickets + 1"),
					"total_spent":   gorm.Expr("total_spent + ?", price),
				}).Error; err != nil {
				return err
			}
		}
		return tx.
			Model(&models.User{}).
			Where("id = ?", sellerId).
			Updates(map[string]any{
				"tickets_sold": gorm.Expr("tickets_sold + 1"),
				"total_sales":  gorm.Expr("total_sales + ?", price),
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// CancelReservation returns a reserved ticket to the pool, clearing the
// buyer snapshot. Reserved tickets were never counted as sold, so no
// recount is needed.
func CancelReservation(raffleId uint, number uint) (*models.Ticket, error) {
	var ticket models.Ticket
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		var before models.Ticket
		if err := tx.
			Where("raffle_id = ? AND number = ?", raffleId, number).
			First(&before).
			Error; err != nil {
			return fmt.Errorf("%w: ticket %d of raffle %d", types.ErrNotFound, number, raffleId)
		}
		res := tx.
			Model(&models.Ticket{}).
			Where("id = ? AND status = ?", before.ID, types.TICKET_RESERVED).
			Updates(map[string]any{
				"status":         types.TICKET_AVAILABLE,
				"participant_id": nil,
				"buyer_name":     nil,
				"buyer_phone":    nil,
				"buyer_email":    nil,
				"reserved_at":    nil,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: only reserved tickets can have their reservation cancelled", types.ErrInvalidState)
		}
		return tx.
			Where("raffle_id = ? AND number = ?", raffleId, number).
			First(&ticket).
			Error
	})
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// RefundTicket reverses a sale while the raffle is still open. The
// ticket's confirmed payment is marked refunded, the raffle totals are
// recounted and the participant counters are decremented, floored at
// zero.
func RefundTicket(raffleId uint, number uint, reason string) (*models.Ticket, error) {
	var ticket models.Ticket
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		var raffle models.Raffle
		if err := tx.Where(&models.Raffle{ID: raffleId}).First(&raffle).Error; err != nil {
			return fmt.Errorf("%w: raffle %d", types.ErrNotFound, raffleId)
		}
		if raffle.Status == types.RAFFLE_CLOSED {
			return fmt.Errorf("%w: tickets of a closed raffle cannot be refunded", types.ErrInvalidState)
		}
		var before models.Ticket
		if err := tx.
			Where("raffle_id = ? AND number = ?", raffleId, number).
			First(&before).
			Error; err != nil {
			return fmt.Errorf("%w: ticket %d of raffle %d", types.ErrNotFound, number, raffleId)
		}

		res := tx.
			Model(&models.Ticket{}).
			Where("id = ? AND status = ?", before.ID, types.TICKET_SOLD).
			Updates(map[string]any{
				"status":         types.TICKET_AVAILABLE,
				"price":          raffle.TicketPrice,
				"participant_id": nil,
				"sold_by_id":     nil,
				"buyer_name":     nil,
				"buyer_phone":    nil,
				"buyer_email":    nil,
				"reserved_at":    nil,
				"sold_at":        nil,
				"paid_at":        nil,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: only sold tickets can be refunded", types.ErrInvalidState)
		}

		notes := fmt.Sprintf("refunded: %s", reason)
		if err := tx.
			Model(&models.Payment{}).
			Where("ticket_id = ? AND status = ?", before.ID, types.PAYMENT_CONFIRMED).
			Updates(map[string]any{
				"status": types.PAYMENT_REFUNDED,
				"notes":  notes,
			}).Error; err != nil {
			return err
		}

		if err := RecountRaffleAggregates(tx, raffleId); err != nil {
			return err
		}
		if before.ParticipantID != nil {
			if err := tx.
				Model(&models.Participant{}).
				Where("id = ?", *before.ParticipantID).
				Updates(map[string]any{
					"total_tickets": gorm.Expr("GREATEST(total_tickets - 1, 0)"),
					"total_spent":   gorm.Expr("GREATEST(total_spent - ?, 0)", before.Price),
				}).Error; err != nil {
				return err
			}
		}
		return tx.
			Where("raffle_id = ? AND number = ?", raffleId, number).
			First(&ticket).
			Error
	})
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func GetAvailableNumbers(raffleId uint) ([]uint, error) {
	db := db.GetDb()
	if _, err := GetRaffle(raffleId); err != nil {
		return nil, err
	}
	numbers := []uint{}
	err := db.
		Model(&models.Ticket{}).
		Scopes(scopes.WithRaffle(raffleId), scopes.WithTicketStatus(types.TICKET_AVAILABLE)).
		Order("number asc").
		Pluck("number", &numbers).
		Error
	if err != nil {
		return nil, err
	}
	return numbers, nil
}

// ComputeRaffleStatistics recomputes everything from the ticket rows;
// the cached raffle fields are never trusted here.
func ComputeRaffleStatistics(raffleId uint) (*types.RaffleStatistics, error) {
	db := db.GetDb()
	raffle, err := GetRaffle(raffleId)
	if err != nil {
		return nil, err
	}
	stats := types.RaffleStatistics{
		RaffleID: raffleId,
		Total:    raffle.TicketCount,
	}
	type statusCount struct {
		Status string
		Count  uint
	}
	var rows []statusCount
	if err := db.
		Model(&models.Ticket{}).
		Select("status, COUNT(id) as count").
		Where("raffle_id = ?", raffleId).
		Group("status").
		Scan(&rows).
		Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		switch types.TicketStatus(row.Status) {
		case types.TICKET_AVAILABLE:
			stats.Available = row.Count
		case types.TICKET_RESERVED:
			stats.Reserved = row.Count
		case types.TICKET_SOLD:
			stats.Sold = row.Count
		}
	}
	var collected float64
	if err := db.
		Model(&models.Ticket{}).
		Where("raffle_id = ? AND status = ?", raffleId, types.TICKET_SOLD).
		Select("COALESCE(SUM(price), 0)").
		Scan(&collected).
		Error; err != nil {
		return nil, err
	}
	stats.AmountCollected = collected
	if stats.Total > 0 {
		stats.PercentSold = Round2(float64(stats.Sold) / float64(stats.Total) * 100)
	}
	return &stats, nil
}

// DeleteRaffle removes a raffle and its ticket set. Sold and reserved
// tickets block the delete with distinct messages so the caller can
// explain why.
func DeleteRaffle(raffleId uint) error {
	db := db.GetDb()
	return db.Transaction(func(tx *gorm.DB) error {
		if _, err := GetRaffle(raffleId); err != nil {
			return err
		}
		var sold int64
		if err := tx.
			Model(&models.Ticket{}).
			Where("raffle_id = ? AND status = ?", raffleId, types.TICKET_SOLD).
			Count(&sold).
			Error; err != nil {
			return err
		}
		if sold > 0 {
			return fmt.Errorf("%w: raffle has %d sold tickets", types.ErrDependentData, sold)
		}
		var reserved int64
		if err := tx.
			Model(&models.Ticket{}).
			Where("raffle_id = ? AND status = ?", raffleId, types.TICKET_RESERVED).
			Count(&reserved).
			Error; err != nil {
			return err
		}
		if reserved > 0 {
			return fmt.Errorf("%w: raffle has %d reserved tickets", types.ErrDependentData, reserved)
		}
		if err := tx.
			Unscoped().
			Where("raffle_id = ?", raffleId).
			Delete(&models.Ticket{}).
			Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&models.Raffle{ID: raffleId}).Error
	})
}

// UpdateRaffle applies the allow-listed fields. A ticket_count change is
// rejected outright once any ticket is sold or reserved; with a clean
// pool the ticket set is re-materialized at the new size.
func UpdateRaffle(raffleId uint, params *types.UpdateRaffleRequestBody) (*models.Raffle, error) {
	var raffle models.Raffle
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where(&models.Raffle{ID: raffleId}).
			First(&raffle).
			Error; err != nil {
			return fmt.Errorf("%w: raffle %d", types.ErrNotFound, raffleId)
		}
		if raffle.Status == types.RAFFLE_CLOSED {
			return fmt.Errorf("%w: a closed raffle cannot be edited", types.ErrInvalidState)
		}

		updates := map[string]any{}
		if params.Title != nil {
			updates["title"] = *params.Title
		}
		if params.Prize != nil {
			updates["prize"] = *params.Prize
		}
		if params.Description != nil {
			updates["description"] = *params.Description
		}
		if params.TicketPrice != nil {
			updates["ticket_price"] = *params.TicketPrice
		}
		if params.PixKey != nil {
			updates["pix_key"] = *params.PixKey
		}
		if params.EndDate != nil {
			endDate, err := time.Parse(config.TIME_PARSE_FORMAT, *params.EndDate)
			if err != nil {
				return err
			}
			updates["end_date"] = endDate
		}
		if params.Status != nil {
			updates["status"] = types.RaffleStatus(*params.Status)
		}

		if params.TicketCount != nil && *params.TicketCount != raffle.TicketCount {
			var taken int64
			if err := tx.
				Model(&models.Ticket{}).
				Where("raffle_id = ? AND status IN (?)", raffleId, []types.TicketStatus{
					types.TICKET_SOLD,
					types.TICKET_RESERVED,
				}).
				Count(&taken).
				Error; err != nil {
				return err
			}
			if taken > 0 {
				return fmt.Errorf("%w: cannot resize a raffle with sold or reserved tickets", types.ErrDependentData)
			}
			price := raffle.TicketPrice
			if params.TicketPrice != nil {
				price = *params.TicketPrice
			}
			if err := tx.
				Unscoped().
				Where("raffle_id = ?", raffleId).
				Delete(&models.Ticket{}).
				Error; err != nil {
				return err
			}
			tickets := make([]models.Ticket, 0, *params.TicketCount)
			for n := uint(1); n <= *params.TicketCount; n++ {
				tickets = append(tickets, models.Ticket{
					RaffleID: raffleId,
					Number:   n,
					Status:   types.TICKET_AVAILABLE,
					Price:    price,
				})
			}
			if err := tx.CreateInBatches(&tickets, 500).Error; err != nil {
				return err
			}
			updates["ticket_count"] = *params.TicketCount
		}

		if len(updates) == 0 {
			return nil
		}
		if err := tx.
			Model(&models.Raffle{}).
			Where("id = ?", raffleId).
			Updates(updates).
			Error; err != nil {
			return err
		}
		return tx.Where(&models.Raffle{ID: raffleId}).First(&raffle).Error
	})
	if err != nil {
		return nil, err
	}
	return &raffle, nil
}

// PickWinner selects one number uniformly at random.
func PickWinner(numbers []uint) (uint, error) {
	if len(numbers) == 0 {
		return 0, fmt.Errorf("%w: no sold tickets to draw from", types.ErrInvalidState)
	}
	idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(numbers))))
	if err != nil {
		return 0, err
	}
	return numbers[idx.Int64()], nil
}

// PerformDrawing draws a winner among the raffle's sold tickets. The
// scheduled -> performed transition is conditional so a drawing can only
// be performed once.
func PerformDrawing(drawingId uint) (*models.Drawing, error) {
	var drawing models.Drawing
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(&models.Drawing{ID: drawingId}).First(&drawing).Error; err != nil {
			return fmt.Errorf("%w: drawing %d", types.ErrNotFound, drawingId)
		}
		if drawing.Status != types.DRAWING_SCHEDULED {
			return fmt.Errorf("%w: drawing is %s, not scheduled", types.ErrInvalidState, drawing.Status)
		}
		var sold []models.Ticket
		if err := tx.
			Select("id", "number").
			Where("raffle_id = ? AND status = ?", drawing.RaffleID, types.TICKET_SOLD).
			Find(&sold).
			Error; err != nil {
			return err
		}
		numbers := make([]uint, 0, len(sold))
		byNumber := map[uint]uint{}
		for _, t := range sold {
			numbers = append(numbers, t.Number)
			byNumber[t.Number] = t.ID
		}
		winner, err := PickWinner(numbers)
		if err != nil {
			return err
		}
		winnerTicketId := byNumber[winner]

		now := time.Now()
		res := tx.
			Model(&models.Drawing{}).
			Where("id = ? AND status = ?", drawingId, types.DRAWING_SCHEDULED).
			Updates(map[string]any{
				"status":            types.DRAWING_PERFORMED,
				"performed_at":      now,
				"winning_number":    winner,
				"winning_ticket_id": winnerTicketId,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: drawing was already performed", types.ErrInvalidState)
		}
		return tx.Where(&models.Drawing{ID: drawingId}).First(&drawing).Error
	})
	if err != nil {
		return nil, err
	}
	go models.DrawingPerformedProducer(drawing.ID, map[string]any{
		"drawing_id":     drawing.ID,
		"raffle_id":      drawing.RaffleID,
		"winning_number": drawing.WinningNumber,
	})
	return &drawing, nil
}

// UpdateDrawingStatus handles the remaining drawing transitions:
// scheduled -> cancelled and performed -> prize_delivered.
func UpdateDrawingStatus(drawingId uint, newStatus types.DrawingStatus) (*models.Drawing, error) {
	var oldStatus types.DrawingStatus
	switch newStatus {
	case types.DRAWING_CANCELLED:
		oldStatus = types.DRAWING_SCHEDULED
	case types.DRAWING_PRIZE_DELIVERED:
		oldStatus = types.DRAWING_PERFORMED
	default:
		return nil, fmt.Errorf("%w: drawings cannot transition to %s directly", types.ErrInvalidState, newStatus)
	}
	var drawing models.Drawing
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(&models.Drawing{ID: drawingId}).First(&drawing).Error; err != nil {
			return fmt.Errorf("%w: drawing %d", types.ErrNotFound, drawingId)
		}
		res := tx.
			Model(&models.Drawing{}).
			Where("id = ? AND status = ?", drawingId, oldStatus).
			Update("status", newStatus)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: drawing is %s, expected %s", types.ErrInvalidState, drawing.Status, oldStatus)
		}
		return tx.Where(&models.Drawing{ID: drawingId}).First(&drawing).Error
	})
	if err != nil {
		return nil, err
	}
	return &drawing, nil
}

func LookupOrCreateParticipant(tx *gorm.DB, name string, phone string, email string) (*models.Participant, error) {
	normalized := NormalizePhone(phone)
	if normalized == "" {
		return nil, errors.New("a phone number is required")
	}
	var participant models.Participant
	err := tx.Where("phone = ?", normalized).First(&participant).Error
	if err == nil {
		return &participant, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	participant = models.Participant{
		Name:  name,
		Phone: normalized,
	}
	if email != "" {
		participant.Email = &email
	}
	if err := tx.Create(&participant).Error; err != nil {
		return nil, err
	}
	return &participant, nil
}

// ReserveNumbersForParticipant is the public bulk reservation: it looks
// up or creates the participant by phone and holds the requested numbers
// (or the first N available) in one transaction. Any unavailable
// requested number aborts the whole reservation.
func ReserveNumbersForParticipant(raffleId uint, params *types.PublicReserveRequestBody) ([]uint, *models.Participant, error) {
	var participant *models.Participant
	reserved := []uint{}
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		if _, err := requireActiveRaffle(tx, raffleId); err != nil {
			return err
		}
		p, err := LookupOrCreateParticipant(tx, params.Name, params.Phone, params.Email)
		if err != nil {
			return err
		}
		participant = p

		numbers := params.Numbers
		if len(numbers) == 0 {
			qty := params.Quantity
			if qty == 0 {
				qty = 1
			}
			if err := tx.
				Model(&models.Ticket{}).
				Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("raffle_id = ? AND status = ?", raffleId, types.TICKET_AVAILABLE).
				Order("number asc").
				Limit(int(qty)).
				Pluck("number", &numbers).
				Error; err != nil {
				return err
			}
			if uint(len(numbers)) < qty {
				return fmt.Errorf("%w: only %d tickets are still available", types.ErrInvalidState, len(numbers))
			}
		}

		now := time.Now()
		for _, number := range numbers {
			res := tx.
				Model(&models.Ticket{}).
				Where("raffle_id = ? AND number = ? AND status = ?", raffleId, number, types.TICKET_AVAILABLE).
				Updates(map[string]any{
					"status":         types.TICKET_RESERVED,
					"participant_id": p.ID,
					"buyer_name":     p.Name,
					"buyer_phone":    p.Phone,
					"reserved_at":    now,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("%w: ticket %d is no longer available", types.ErrInvalidState, number)
			}
			reserved = append(reserved, number)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return reserved, participant, nil
}

// TicketNumbersByPhone lets a participant verify their numbers in a
// raffle without authentication.
func TicketNumbersByPhone(raffleId uint, phone string) (map[string][]uint, error) {
	normalized := NormalizePhone(phone)
	db := db.GetDb()
	var tickets []models.Ticket
	if err := db.
		Select("number", "status").
		Where("raffle_id = ? AND buyer_phone = ? AND status IN (?)", raffleId, normalized, []types.TicketStatus{
			types.TICKET_RESERVED,
			types.TICKET_SOLD,
		}).
		Order("number asc").
		Find(&tickets).
		Error; err != nil {
		return nil, err
	}
	result := map[string][]uint{
		"reserved": {},
		"sold":     {},
	}
	for _, t := range tickets {
		result[string(t.Status)] = append(result[string(t.Status)], t.Number)
	}
	return result, nil
}

// CreatePendingPayment records a payment awaiting confirmation,
// optionally with an uploaded receipt path.
func CreatePendingPayment(params *types.CreatePaymentRequestBody, receiptPath *string) (*models.Payment, error) {
	payment := models.Payment{
		RaffleID:      params.RaffleID,
		ParticipantID: &params.ParticipantID,
		Amount:        params.Amount,
		Method:        types.PaymentMethod(params.Method),
		Status:        types.PAYMENT_PENDING,
		ReceiptPath:   receiptPath,
		Reference:     uuid.New(),
	}
	if params.Notes != "" {
		payment.Notes = &params.Notes
	}
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		if _, err := requireActiveRaffle(tx, params.RaffleID); err != nil {
			return err
		}
		var participant models.Participant
		if err := tx.Where(&models.Participant{ID: params.ParticipantID}).First(&participant).Error; err != nil {
			return fmt.Errorf("%w: participant %d", types.ErrNotFound, params.ParticipantID)
		}
		return tx.Create(&payment).Error
	})
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// ConfirmPayment is the canonical approval flow: the pending payment is
// confirmed and every reserved ticket held by its participant in that
// raffle is sold in the same transaction.
func ConfirmPayment(paymentId uint, processorId uint) (*models.Payment, int64, error) {
	var payment models.Payment
	var ticketsSold int64
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(&models.Payment{ID: paymentId}).First(&payment).Error; err != nil {
			return fmt.Errorf("%w: payment %d", types.ErrNotFound, paymentId)
		}
		res := tx.
			Model(&models.Payment{}).
			Where("id = ? AND status = ?", paymentId, types.PAYMENT_PENDING).
			Updates(map[string]any{
				"status":          types.PAYMENT_CONFIRMED,
				"processed_by_id": processorId,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: payment is %s, not pending", types.ErrInvalidState, payment.Status)
		}

		now := time.Now()
		if payment.TicketID != nil {
			res = tx.
				Model(&models.Ticket{}).
				Where("id = ? AND status = ?", *payment.TicketID, types.TICKET_RESERVED).
				Updates(map[string]any{
					"status":  types.TICKET_SOLD,
					"sold_at": now,
					"paid_at": now,
				})
		} else if payment.ParticipantID != nil {
			res = tx.
				Model(&models.Ticket{}).
				Where("raffle_id = ? AND participant_id = ? AND status = ?", payment.RaffleID, *payment.ParticipantID, types.TICKET_RESERVED).
				Updates(map[string]any{
					"status":  types.TICKET_SOLD,
					"sold_at": now,
					"paid_at": now,
				})
		} else {
			return fmt.Errorf("%w: payment has no ticket or participant", types.ErrInvalidState)
		}
		if res.Error != nil {
			return res.Error
		}
		ticketsSold = res.RowsAffected
		if ticketsSold == 0 {
			return fmt.Errorf("%w: no reserved tickets found for this payment", types.ErrInvalidState)
		}

		if err := RecountRaffleAggregates(tx, payment.RaffleID); err != nil {
			return err
		}
		if payment.ParticipantID != nil {
			if err := tx.
				Model(&models.Participant{}).
				Where("id = ?", *payment.ParticipantID).
				Updates(map[string]any{
					"total_tickets": gorm.Expr("total_tickets + ?", ticketsSold),
					"total_spent":   gorm.Expr("total_spent + ?", payment.Amount),
				}).Error; err != nil {
				return err
			}
		}
		return tx.Where(&models.Payment{ID: paymentId}).First(&payment).Error
	})
	if err != nil {
		return nil, 0, err
	}
	return &payment, ticketsSold, nil
}

// RejectPayment declines a pending payment. Reserved tickets stay
// reserved; releasing them is a separate, explicit step.
func RejectPayment(paymentId uint, processorId uint, reason string) (*models.Payment, error) {
	var payment models.Payment
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(&models.Payment{ID: paymentId}).First(&payment).Error; err != nil {
			return fmt.Errorf("%w: payment %d", types.ErrNotFound, paymentId)
		}
		updates := map[string]any{
			"status":          types.PAYMENT_REJECTED,
			"processed_by_id": processorId,
		}
		if reason != "" {
			updates["notes"] = reason
		}
		res := tx.
			Model(&models.Payment{}).
			Where("id = ? AND status = ?", paymentId, types.PAYMENT_PENDING).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: payment is %s, not pending", types.ErrInvalidState, payment.Status)
		}
		return tx.Where(&models.Payment{ID: paymentId}).First(&payment).Error
	})
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// CloseRaffle flips an active raffle to closed once its end date has
// passed. The end_date check keeps a stale one-time job harmless after
// the deadline was extended; the hourly sweep picks up the new one.
func CloseRaffle(raffleId uint) error {
	var closed bool
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		res := tx.
			Model(&models.Raffle{}).
			Where("id = ? AND status = ? AND end_date <= NOW()", raffleId, types.RAFFLE_ACTIVE).
			Update("status", types.RAFFLE_CLOSED)
		if res.Error != nil {
			return res.Error
		}
		closed = res.RowsAffected > 0
		if !closed {
			log.Printf("Raffle [%d] is not active or not yet due, skipping close\n", raffleId)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if closed {
		go models.RaffleCloseProducer(raffleId, map[string]any{"raffle_id": raffleId})
	}
	return nil
}

// DeleteUser removes an operator unless they have recorded sales.
func DeleteUser(id uint) error {
	db := db.GetDb()
	return db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Where(&models.User{ID: id}).First(&user).Error; err != nil {
			return fmt.Errorf("%w: user %d", types.ErrNotFound, id)
		}
		var sales int64
		if err := tx.
			Model(&models.Ticket{}).
			Where("sold_by_id = ?", id).
			Count(&sales).
			Error; err != nil {
			return err
		}
		if sales > 0 {
			return fmt.Errorf("%w: user has %d recorded sales", types.ErrDependentData, sales)
		}
		return tx.Delete(&models.User{ID: id}).Error
	})
}
