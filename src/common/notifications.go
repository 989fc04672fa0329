package common

import (
	"fmt"
	"log"
	"os"
	"rifa/src/db"
	"rifa/src/lib"
	"rifa/src/lib/mailer"
	"rifa/src/models"
	"rifa/src/types"
	"rifa/src/utils"

	"github.com/tidwall/gjson"
	"gorm.io/gorm"
)

// SendPaymentConfirmedEmail notifies a participant that their payment
// was approved and lists the ticket numbers now theirs. Failures are
// logged and swallowed; the payment itself is already committed.
func SendPaymentConfirmedEmail(payment *models.Payment) {
	if payment.ParticipantID == nil {
		return
	}
	db := db.GetDb()
	var participant models.Participant
	if err := db.Where(&models.Participant{ID: *payment.ParticipantID}).First(&participant).Error; err != nil {
		log.Printf("Error loading participant [%d]: %s\n", *payment.ParticipantID, err.Error())
		return
	}
	if participant.Email == nil {
		return
	}
	var raffle models.Raffle
	if err := db.Select("id", "title", "prize").Where(&models.Raffle{ID: payment.RaffleID}).First(&raffle).Error; err != nil {
		log.Printf("Error loading raffle [%d]: %s\n", payment.RaffleID, err.Error())
		return
	}
	var numbers []uint
	if err := db.
		Model(&models.Ticket{}).
		Where("raffle_id = ? AND participant_id = ? AND status = ?", payment.RaffleID, participant.ID, types.TICKET_SOLD).
		Order("number asc").
		Pluck("number", &numbers).
		Error; err != nil {
		log.Printf("Error loading tickets for participant [%d]: %s\n", participant.ID, err.Error())
		return
	}

	senderFrom := os.Getenv("SMTP_FROM")
	input := &lib.SendMailInput{
		Subject:  fmt.Sprintf("Payment confirmed: %s", raffle.Title),
		From:     senderFrom,
		FromName: "noreply",
		To:       []string{*participant.Email},
		Body: fmt.Sprintf(`
			<p>Hi %s,</p>
			<p>Your payment of R$ %.2f for raffle <b>%s</b> was confirmed.</p>
			<p>Your numbers: <b>%v</b></p>
			<p>Prize: %s</p>
			<p>Good luck!</p>
		`, participant.Name, payment.Amount, raffle.Title, numbers, raffle.Prize),
		Html: true,
	}
	if err := mailer.NewMailerMessage(input); err != nil {
		log.Printf("Error queueing confirmation email for payment [%d]: %s\n", payment.ID, err.Error())
	}
}

// SendPaymentRejectedEmail tells the participant their payment was
// declined and that their reservation is still on hold.
func SendPaymentRejectedEmail(payment *models.Payment) {
	if payment.ParticipantID == nil {
		return
	}
	db := db.GetDb()
	var participant models.Participant
	if err := db.Where(&models.Participant{ID: *payment.ParticipantID}).First(&participant).Error; err != nil {
		log.Printf("Error loading participant [%d]: %s\n", *payment.ParticipantID, err.Error())
		return
	}
	if participant.Email == nil {
		return
	}
	var raffle models.Raffle
	if err := db.Select("id", "title").Where(&models.Raffle{ID: payment.RaffleID}).First(&raffle).Error; err != nil {
		log.Printf("Error loading raffle [%d]: %s\n", payment.RaffleID, err.Error())
		return
	}
	reason := ""
	if payment.Notes != nil {
		reason = fmt.Sprintf("<p>Reason: %s</p>", *payment.Notes)
	}
	senderFrom := os.Getenv("SMTP_FROM")
	input := &lib.SendMailInput{
		Subject:  fmt.Sprintf("Payment declined: %s", raffle.Title),
		From:     senderFrom,
		FromName: "noreply",
		To:       []string{*participant.Email},
		Body: fmt.Sprintf(`
			<p>Hi %s,</p>
			<p>We could not confirm your payment of R$ %.2f for raffle <b>%s</b>.</p>
			%s
			<p>Your reserved numbers are still on hold. Please contact the seller to try again.</p>
		`, participant.Name, payment.Amount, raffle.Title, reason),
		Html: true,
	}
	if err := mailer.NewMailerMessage(input); err != nil {
		log.Printf("Error queueing rejection email for payment [%d]: %s\n", payment.ID, err.Error())
	}
}

// SendWinnerEmail notifies the winning ticket holder after a drawing.
func SendWinnerEmail(drawing *models.Drawing) {
	if drawing.WinningTicketID == nil {
		return
	}
	db := db.GetDb()
	var ticket models.Ticket
	if err := db.Where(&models.Ticket{ID: *drawing.WinningTicketID}).First(&ticket).Error; err != nil {
		log.Printf("Error loading winning ticket [%d]: %s\n", *drawing.WinningTicketID, err.Error())
		return
	}
	if ticket.BuyerEmail == nil {
		return
	}
	var raffle models.Raffle
	if err := db.Select("id", "title", "prize").Where(&models.Raffle{ID: drawing.RaffleID}).First(&raffle).Error; err != nil {
		return
	}
	name := ""
	if ticket.BuyerName != nil {
		name = *ticket.BuyerName
	}
	senderFrom := os.Getenv("SMTP_FROM")
	input := &lib.SendMailInput{
		Subject:  fmt.Sprintf("You won! %s", raffle.Title),
		From:     senderFrom,
		FromName: "noreply",
		To:       []string{*ticket.BuyerEmail},
		Body: fmt.Sprintf(`
			<p>Congratulations %s!</p>
			<p>Your number <b>%d</b> won raffle <b>%s</b>.</p>
			<p>Prize: %s</p>
			<p>The organizer will contact you to deliver your prize.</p>
		`, name, ticket.Number, raffle.Title, raffle.Prize),
		Html: true,
	}
	if err := mailer.NewMailerMessage(input); err != nil {
		log.Printf("Error queueing winner email for drawing [%d]: %s\n", drawing.ID, err.Error())
	}
}

// RafflesCloseConsumer marks raffles closed as their close messages
// arrive on the broker.
func RafflesCloseConsumer() {
	lib.KafkaConsumeTopic("rifa", "raffles-close", func(payload string) {
		raffleId := gjson.Get(payload, "raffle_id").Uint()
		if raffleId == 0 {
			log.Printf("[RafflesCloseConsumer] message without raffle_id: %s\n", payload)
			return
		}
		db := db.GetDb()
		err := db.Transaction(func(tx *gorm.DB) error {
			return tx.
				Model(&models.Raffle{}).
				Where("id = ? AND status = ?", raffleId, types.RAFFLE_ACTIVE).
				Update("status", types.RAFFLE_CLOSED).
				Error
		})
		if err != nil {
			log.Printf("[RafflesCloseConsumer] Error closing raffle [%d]: %s\n", raffleId, err.Error())
		}
	})
}

// DrawingsPerformedConsumer fans out winner notifications.
func DrawingsPerformedConsumer() {
	lib.KafkaConsumeTopic("rifa", "drawings-performed", func(payload string) {
		drawingId := gjson.Get(payload, "drawing_id").Uint()
		if drawingId == 0 {
			return
		}
		db := db.GetDb()
		var drawing models.Drawing
		if err := db.Where(&models.Drawing{ID: uint(drawingId)}).First(&drawing).Error; err != nil {
			log.Printf("[DrawingsPerformedConsumer] Error loading drawing [%d]: %s\n", drawingId, err.Error())
			return
		}
		SendWinnerEmail(&drawing)
	})
}

// EmailsConsumer delivers queued emails over SMTP in the local
// environment, where the SQS pipeline is not available.
func EmailsConsumer() {
	emailQueue := os.Getenv("EMAIL_QUEUE")
	lib.KafkaConsumeTopic("emails", emailQueue, func(payload string) {
		input := lib.SendMailInput{
			From:     gjson.Get(payload, "from").String(),
			FromName: gjson.Get(payload, "from-name").String(),
			Subject:  gjson.Get(payload, "subject").String(),
			Body:     gjson.Get(payload, "body").String(),
			Html:     gjson.Get(payload, "html").Bool(),
		}
		for _, to := range gjson.Get(payload, "to").Array() {
			input.To = append(input.To, to.String())
		}
		if err := lib.SendMail(&input); err != nil {
			log.Printf("[EmailsConsumer] Error sending email: %s\n", err.Error())
		}
	})
}

// ExpireStaleReservations releases reservations older than the hold
// window in active raffles. Runs from the cron scheduler.
func ExpireStaleReservations(holdHours int) {
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		res := tx.
			Model(&models.Ticket{}).
			Where("status = ? AND reserved_at < NOW() - (? * INTERVAL '1 hour')", types.TICKET_RESERVED, holdHours).
			Where("raffle_id IN (?)", tx.
				Model(&models.Raffle{}).
				Select("id").
				Where("status = ?", types.RAFFLE_ACTIVE),
			).
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
		if res.RowsAffected > 0 {
			log.Printf("Released %d stale reservations\n", res.RowsAffected)
		}
		return nil
	})
	if err != nil {
		log.Printf("Error releasing stale reservations: %s\n", err.Error())
	}
}

// CloseExpiredRaffles closes active raffles whose end date has passed.
// Covers raffles whose one-time close jobs were lost across restarts.
func CloseExpiredRaffles() {
	db := db.GetDb()
	var ids []uint
	if err := db.
		Model(&models.Raffle{}).
		Where("status = ? AND end_date < NOW()", types.RAFFLE_ACTIVE).
		Pluck("id", &ids).
		Error; err != nil {
		log.Printf("Error listing expired raffles: %s\n", err.Error())
		return
	}
	for _, id := range ids {
		if err := utils.CloseRaffle(id); err != nil {
			log.Printf("Error closing raffle [%d]: %s\n", id, err.Error())
		}
	}
}
