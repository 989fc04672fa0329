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

func participantHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/participants", func(ctx *gin.Context) {
			db := db.GetDb()
			q := db.Model(&models.Participant{})
			if phone := ctx.Query("phone"); phone != "" {
				q = q.Where("phone = ?", utils.NormalizePhone(phone))
			}
			if name := ctx.Query("name"); name != "" {
				q = q.Where("name ILIKE ?", "%"+name+"%")
			}
			var participants []models.Participant
			if err := q.Order("name asc").Limit(100).Find(&participants).Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": participants, "count": len(participants)})
		}).
		GET("/participants/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			db := db.GetDb()
			var participant models.Participant
			if err := db.
				Where(&models.Participant{ID: params.ID}).
				First(&participant).
				Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "participant not found"})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": participant})
		}).
		GET("/participants/:id/tickets", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			db := db.GetDb()
			var tickets []models.Ticket
			q := db.Model(&models.Ticket{}).Where("participant_id = ?", params.ID)
			if raffleId := ctx.Query("raffle_id"); raffleId != "" {
				q = q.Where("raffle_id = ?", raffleId)
			}
			if err := q.Order("raffle_id asc, number asc").Find(&tickets).Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": tickets, "count": len(tickets)})
		}).
		GET("/participants/:id/payments", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			db := db.GetDb()
			var payments []models.Payment
			if err := db.
				Model(&models.Payment{}).
				Where("participant_id = ?", params.ID).
				Order("created_at desc").
				Find(&payments).
				Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": payments, "count": len(payments)})
		})
	return g
}

func userHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/users", func(ctx *gin.Context) {
			db := db.GetDb()
			var users []models.User
			if err := db.Model(&models.User{}).Order("name asc").Find(&users).Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": users, "count": len(users)})
		}).
		DELETE("/users/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if err := utils.DeleteUser(params.ID); err != nil {
				log.Printf("Error deleting user [%d]: %s\n", params.ID, err.Error())
				ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
				return
			}
			ctx.Status(http.StatusNoContent)
		})
	return g
}
