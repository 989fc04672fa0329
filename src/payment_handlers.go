package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path"
	"rifa/src/common"
	"rifa/src/db"
	awslib "rifa/src/lib/aws"
	"rifa/src/models"
	"rifa/src/types"
	"rifa/src/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func paymentHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/payments", func(ctx *gin.Context) {
			var body types.CreatePaymentRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			payment, err := utils.CreatePendingPayment(&body, nil)
			if err != nil {
				log.Printf("Error creating payment: %s\n", err.Error())
				ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": payment})
		}).
		GET("/payments", func(ctx *gin.Context) {
			db := db.GetDb()
			q := db.Model(&models.Payment{})
			if status := ctx.Query("status"); status != "" {
				q = q.Where("status = ?", status)
			}
			if raffleId := ctx.Query("raffle_id"); raffleId != "" {
				q = q.Where("raffle_id = ?", raffleId)
			}
			var payments []models.Payment
			if err := q.Order("created_at desc").Find(&payments).Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": payments, "count": len(payments)})
		}).
		GET("/payments/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			db := db.GetDb()
			var payment models.Payment
			if err := db.
				Where(&models.Payment{ID: params.ID}).
				Preload("Participant").
				First(&payment).
				Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": payment})
		}).
		POST("/payments/:id/receipt", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			db := db.GetDb()
			var payment models.Payment
			if err := db.Where(&models.Payment{ID: params.ID}).First(&payment).Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
				return
			}
			file, err := ctx.FormFile("receipt")
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			wd, _ := os.Getwd()
			tempdir := os.Getenv("TEMP_DIR")
			filename := fmt.Sprintf("receipt_%d_%s%s", params.ID, uuid.NewString(), path.Ext(file.Filename))
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
			if err := db.
				Model(&models.Payment{}).
				Where("id = ?", params.ID).
				Update("receipt_path", filename).
				Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"url": url})
		}).
		PUT("/payments/:id/confirm", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			processorId := ctx.GetUint("id")
			payment, ticketsSold, err := utils.ConfirmPayment(params.ID, processorId)
			if err != nil {
				log.Printf("Error confirming payment [%d]: %s\n", params.ID, err.Error())
				ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
				return
			}
			go common.SendPaymentConfirmedEmail(payment)
			ctx.JSON(http.StatusOK, gin.H{"data": payment, "tickets_sold": ticketsSold})
		}).
		PUT("/payments/:id/reject", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body struct {
				Reason string `json:"reason,omitempty"`
			}
			if err := ctx.ShouldBindJSON(&body); err != nil && err.Error() != "EOF" {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			processorId := ctx.GetUint("id")
			payment, err := utils.RejectPayment(params.ID, processorId, body.Reason)
			if err != nil {
				log.Printf("Error rejecting payment [%d]: %s\n", params.ID, err.Error())
				ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
				return
			}
			go common.SendPaymentRejectedEmail(payment)
			ctx.JSON(http.StatusOK, gin.H{"data": payment})
		})
	return g
}
