package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"path"
	"rifa/src/lib"
	"rifa/src/types"
	"rifa/src/utils"
	"time"

	"github.com/gin-gonic/gin"
)

// publicRaffleSummary is the anonymous view of a raffle: no buyer data,
// no seller data, just what a participant needs to join.
type publicRaffleSummary struct {
	Slug           string    `json:"slug"`
	Title          string    `json:"title"`
	Prize          string    `json:"prize"`
	Description    *string   `json:"description,omitempty"`
	TicketPrice    float64   `json:"ticket_price"`
	TicketCount    uint      `json:"ticket_count"`
	Status         string    `json:"status"`
	EndDate        time.Time `json:"end_date"`
	PercentSold    float64   `json:"percent_sold"`
	AvailableCount uint      `json:"available_count"`
	PixPayload     string    `json:"pix_payload"`
}

func publicRaffleRoutes(g *gin.RouterGroup) *gin.RouterGroup {
	public := g.Group("/public")
	public.
		GET("/raffles/:slug", func(ctx *gin.Context) {
			var params types.SlugURIParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			rd := lib.GetRedisClient()
			cacheKey := lib.PublicRaffleKey(params.Slug)
			if cached := rd.Get(ctx, cacheKey).Val(); cached != "" {
				ctx.Data(http.StatusOK, "application/json", []byte(cached))
				return
			}
			raffle, err := utils.GetRaffleBySlugOrID(params.Slug)
			if err != nil {
				ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
				return
			}
			stats, err := utils.ComputeRaffleStatistics(raffle.ID)
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			summary := publicRaffleSummary{
				Slug:           raffle.Slug,
				Title:          raffle.Title,
				Prize:          raffle.Prize,
				Description:    raffle.Description,
				TicketPrice:    raffle.TicketPrice,
				TicketCount:    raffle.TicketCount,
				Status:         string(raffle.Status),
				EndDate:        raffle.EndDate,
				PercentSold:    stats.PercentSold,
				AvailableCount: stats.Available,
				PixPayload: lib.PixPayload(&lib.PixCharge{
					Key:          raffle.PixKey,
					MerchantName: os.Getenv("PIX_MERCHANT_NAME"),
					MerchantCity: os.Getenv("PIX_MERCHANT_CITY"),
					Amount:       raffle.TicketPrice,
					TxID:         fmt.Sprintf("RIFA%d", raffle.ID),
				}),
			}
			body, err := json.Marshal(gin.H{"data": summary})
			if err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			rd.SetEx(ctx, cacheKey, string(body), 60*time.Second)
			ctx.Data(http.StatusOK, "application/json", body)
		}).
		POST("/raffles/:slug/reserve", func(ctx *gin.Context) {
			var params types.SlugURIParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.PublicReserveRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			raffle, err := utils.GetRaffleBySlug(params.Slug)
			if err != nil {
				ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
				return
			}
			numbers, participant, err := utils.ReserveNumbersForParticipant(raffle.ID, &body)
			if err != nil {
				log.Printf("Error on public reservation for raffle [%d]: %s\n", raffle.ID, err.Error())
				ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
				return
			}
			rd := lib.GetRedisClient()
			rd.Del(ctx, lib.PublicRaffleKey(raffle.Slug))
			total := raffle.TicketPrice * float64(len(numbers))
			ctx.JSON(http.StatusOK, gin.H{
				"numbers":        numbers,
				"participant_id": participant.ID,
				"total":          utils.Round2(total),
				"pix_payload": lib.PixPayload(&lib.PixCharge{
					Key:          raffle.PixKey,
					MerchantName: os.Getenv("PIX_MERCHANT_NAME"),
					MerchantCity: os.Getenv("PIX_MERCHANT_CITY"),
					Amount:       utils.Round2(total),
					TxID:         fmt.Sprintf("RIFA%d", raffle.ID),
				}),
			})
		}).
		GET("/raffles/:slug/qrcode", func(ctx *gin.Context) {
			var params types.SlugURIParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			raffle, err := utils.GetRaffleBySlug(params.Slug)
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
		}).
		GET("/raffles/:slug/verify", func(ctx *gin.Context) {
			var params types.SlugURIParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			phone := ctx.Query("phone")
			if phone == "" {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "phone is required"})
				return
			}
			raffle, err := utils.GetRaffleBySlug(params.Slug)
			if err != nil {
				ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
				return
			}
			numbers, err := utils.TicketNumbersByPhone(raffle.ID, phone)
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": numbers})
		})
	return public
}
