package main

import (
	"log"
	"net/http"
	"rifa/src/config"
	"rifa/src/db"
	"rifa/src/lib"
	"rifa/src/models"
	"rifa/src/types"
	"rifa/src/utils"
	"time"

	"github.com/gin-gonic/gin"
)

func drawingHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/drawings", func(ctx *gin.Context) {
			var body types.ScheduleDrawingRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if _, err := utils.GetRaffle(body.RaffleID); err != nil {
				ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
				return
			}
			drawing := models.Drawing{
				RaffleID: body.RaffleID,
				Status:   types.DRAWING_SCHEDULED,
			}
			if body.ScheduledFor != nil {
				scheduledFor, err := time.Parse(config.TIME_PARSE_FORMAT, *body.ScheduledFor)
				if err != nil {
					ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
					return
				}
				drawing.ScheduledFor = &scheduledFor
			}
			db := db.GetDb()
			if err := db.Create(&drawing).Error; err != nil {
				log.Printf("Error scheduling drawing: %s\n", err.Error())
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			if drawing.ScheduledFor != nil && drawing.ScheduledFor.After(time.Now()) {
				id := drawing.ID
				if _, err := lib.CreateOneTimeJob(*drawing.ScheduledFor, func() {
					if _, err := utils.PerformDrawing(id); err != nil {
						log.Printf("Error performing drawing [%d]: %s\n", id, err.Error())
					}
				}); err != nil {
					log.Printf("Error scheduling job for drawing [%d]: %s\n", id, err.Error())
				}
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": drawing})
		}).
		GET("/drawings", func(ctx *gin.Context) {
			db := db.GetDb()
			q := db.Model(&models.Drawing{})
			if raffleId := ctx.Query("raffle_id"); raffleId != "" {
				q = q.Where("raffle_id = ?", raffleId)
			}
			var drawings []models.Drawing
			if err := q.Order("created_at desc").Find(&drawings).Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": drawings, "count": len(drawings)})
		}).
		GET("/drawings/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			db := db.GetDb()
			var drawing models.Drawing
			if err := db.
				Where(&models.Drawing{ID: params.ID}).
				Preload("WinningTicket").
				First(&drawing).
				Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "drawing not found"})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": drawing})
		}).
		PUT("/drawings/:id/perform", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			drawing, err := utils.PerformDrawing(params.ID)
			if err != nil {
				log.Printf("Error performing drawing [%d]: %s\n", params.ID, err.Error())
				ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": drawing})
		}).
		PUT("/drawings/:id/cancel", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			drawing, err := utils.UpdateDrawingStatus(params.ID, types.DRAWING_CANCELLED)
			if err != nil {
				ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": drawing})
		}).
		PUT("/drawings/:id/deliver", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			drawing, err := utils.UpdateDrawingStatus(params.ID, types.DRAWING_PRIZE_DELIVERED)
			if err != nil {
				ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": drawing})
		})
	return g
}
