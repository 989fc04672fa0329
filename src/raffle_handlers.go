package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path"
	"rifa/src/db"
	"rifa/src/lib"
	awslib "rifa/src/lib/aws"
	"rifa/src/models"
	"rifa/src/types"
	"rifa/src/utils"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func raffleReadHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/raffles", func(ctx *gin.Context) {
			db := db.GetDb()
			q := db.Model(&models.Raffle{})
			if status := ctx.Query("status"); status != "" {
				q = q.Where("status = ?", status)
			}
			var raffles []models.Raffle
			if err := q.Order("created_at desc").Find(&raffles).Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": raffles, "count": len(raffles)})
		}).
		GET("/raffles/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			raffle, err := utils.GetRaffle(params.ID)
			if err != nil {
				ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
				return
			}
			stats, err := utils.ComputeRaffleStatistics(params.ID)
			if err != nil {
				log.Printf("Error computing stats for raffle [%d]: %s\n", params.ID, err.Error())
			} else {
				raffle.Stats = stats
			}
			ctx.JSON(http.StatusOK, gin.H{"data": raffle})
		}).
		GET("/raffles/:id/stats", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			stats, err := utils.ComputeRaffleStatistics(params.ID)
			if err != nil {
				ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": stats})
		}).
		GET("/raffles/:id/available", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			numbers, err := utils.GetAvailableNumbers(params.ID)
			if err != nil {
				ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": numbers, "count": len(numbers)})
		}).
		GET("/raffles/:id/qrcode", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			raffle, err := utils.GetRaffle(params.ID)
			if err != nil {
				ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
				return
			}
			charge := &lib.PixCharge{
				Key:          raffle.PixKey,
				MerchantName: os.Getenv("PIX_MERCHANT_NAME"),
				MerchantCity: os.Getenv("PIX_MERCHANT_CITY"),
				Amount:       raffle.TicketPrice,
				TxID:         fmt.Sprintf("RIFA%d", raffle.ID),
			}
			filename := fmt.Sprintf("pix_%s.jpeg", raffle.Slug)
			rd := lib.GetRedisClient()
			wd, _ := os.Getwd()
			tempdir := os.Getenv("TEMP_DIR")
			filepath := path.Join(wd, tempdir, filename)
			if rd.Get(ctx, filename).Val() == "" {
				if err := lib.PixQRCode(charge, filepath); err != nil {
					log.Printf("Could not save qrcode to file [%s]: %s\n", filepath, err.Error())
					ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
					return
				}
				rd.SetEx(ctx, filename, filepath, 2*time.Hour)
			}
			ctx.FileAttachment(filepath, filename)
		})
	return g
}

func raffleAdminHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/raffles", func(ctx *gin.Context) {
			var body types.CreateRaffleRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			creatorId := ctx.GetUint("id")
			id, err := utils.CreateNewRaffle(&body, creatorId)
			if err != nil {
				log.Printf("Error creating raffle: %s\n", err.Error())
				ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
				return
			}
			go models.RaffleOpenProducer(id, map[string]any{"raffle_id": id})
			if raffle, err := utils.GetRaffle(id); err == nil && raffle.EndDate.After(time.Now()) {
				raffleId := id
				if _, err := lib.CreateOneTimeJob(raffle.EndDate, func() {
					if err := utils.CloseRaffle(raffleId); err != nil {
						log.Printf("Error closing raffle [%d]: %s\n", raffleId, err.Error())
					}
				}); err != nil {
					log.Printf("Error scheduling close for raffle [%d]: %s\n", raffleId, err.Error())
				}
			}
			ctx.JSON(http.StatusCreated, gin.H{"id": id})
		}).
		PUT("/raffles/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.UpdateRaffleRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			raffle, err := utils.UpdateRaffle(params.ID, &body)
			if err != nil {
				log.Printf("Error updating raffle [%d]: %s\n", params.ID, err.Error())
				ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
				return
			}
			if body.Status != nil && types.RaffleStatus(*body.Status) == types.RAFFLE_CLOSED {
				go models.RaffleCloseProducer(params.ID, map[string]any{"raffle_id": params.ID})
			}
			if body.EndDate != nil && raffle.Status == types.RAFFLE_ACTIVE && raffle.EndDate.After(time.Now()) {
				raffleId := params.ID
				if _, err := lib.CreateOneTimeJob(raffle.EndDate, func() {
					if err := utils.CloseRaffle(raffleId); err != nil {
						log.Printf("Error closing raffle [%d]: %s\n", raffleId, err.Error())
					}
				}); err != nil {
					log.Printf("Error rescheduling close for raffle [%d]: %s\n", raffleId, err.Error())
				}
			}
			rd := lib.GetRedisClient()
			rd.Del(ctx, lib.PublicRaffleKey(raffle.Slug))
			ctx.JSON(http.StatusOK, gin.H{"data": raffle})
		}).
		DELETE("/raffles/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if err := utils.DeleteRaffle(params.ID); err != nil {
				log.Printf("Error deleting raffle [%d]: %s\n", params.ID, err.Error())
				ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
				return
			}
			ctx.Status(http.StatusNoContent)
		}).
		POST("/raffles/:id/image", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if _, err := utils.GetRaffle(params.ID); err != nil {
				ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
				return
			}
			file, err := ctx.FormFile("image")
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			wd, _ := os.Getwd()
			tempdir := os.Getenv("TEMP_DIR")
			filename := fmt.Sprintf("raffle_%d_%s%s", params.ID, uuid.NewString(), path.Ext(file.Filename))
			filepath := path.Join(wd, tempdir, filename)
			if err := ctx.SaveUploadedFile(file, filepath); err != nil {
				log.Printf("Error saving uploaded file: %s\n", err.Error())
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			url, err := awslib.S3UploadAsset(filename, filepath, file.Header.Get("Content-Type"))
			if err != nil {
				log.Printf("Error uploading asset to S3 bucket: %s\n", err.Error())
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			db := db.GetDb()
			if err := db.
				Model(&models.Raffle{}).
				Where("id = ?", params.ID).
				Update("image_path", filename).
				Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"url": url})
		})
	return g
}
