package main

import (
	"log"
	"net/http"
	"rifa/src/db"
	"rifa/src/models"
	"rifa/src/types"
	"rifa/src/utils"

	"github.com/gin-gonic/gin"
)

func ticketHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/raffles/:id/tickets", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if _, err := utils.GetRaffle(params.ID); err != nil {
				ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
				return
			}
			db := db.GetDb()
			q := db.Model(&models.Ticket{}).Where("raffle_id = ?", params.ID)
			if status := ctx.Query("status"); status != "" {
				q = q.Where("status = ?", status)
			}
			var tickets []models.Ticket
			if err := q.Order("number asc").Find(&tickets).Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": tickets, "count": len(tickets)})
		}).
		GET("/raffles/:id/tickets/:number", func(ctx *gin.Context) {
			var params types.TicketNumberURIParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			db := db.GetDb()
			var ticket models.Ticket
			if err := db.
				Where("raffle_id = ? AND number = ?", params.RaffleID, params.Number).
				Preload("Participant").
				First(&ticket).
				Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "ticket not found"})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": ticket})
		}).
		POST("/raffles/:id/tickets/:number/reserve", func(ctx *gin.Context) {
			var params types.TicketNumberURIParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.ReserveTicketRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ticket, err := utils.ReserveTicket(params.RaffleID, params.Number, &body.Buyer, body.ParticipantID)
			if err != nil {
				log.Printf("Error reserving ticket [%d/%d]: %s\n", params.RaffleID, params.Number, err.Error())
				ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": ticket})
		}).
		POST("/raffles/:id/tickets/:number/sell", func(ctx *gin.Context) {
			var params types.TicketNumberURIParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.SellTicketRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			sellerId := ctx.GetUint("id")
			ticket, err := utils.SellTicket(params.RaffleID, params.Number, &body, sellerId)
			if err != nil {
				log.Printf("Error selling ticket [%d/%d]: %s\n", params.RaffleID, params.Number, err.Error())
				ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": ticket})
		}).
		POST("/raffles/:id/tickets/:number/cancel", func(ctx *gin.Context) {
			var params types.TicketNumberURIParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ticket, err := utils.CancelReservation(params.RaffleID, params.Number)
			if err != nil {
				log.Printf("Error cancelling reservation [%d/%d]: %s\n", params.RaffleID, params.Number, err.Error())
				ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": ticket})
		}).
		POST("/raffles/:id/tickets/:number/refund", func(ctx *gin.Context) {
			var params types.TicketNumberURIParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.RefundTicketRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ticket, err := utils.RefundTicket(params.RaffleID, params.Number, body.Reason)
			if err != nil {
				log.Printf("Error refunding ticket [%d/%d]: %s\n", params.RaffleID, params.Number, err.Error())
				ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": ticket})
		})
	return g
}
