package boot

import (
	"log"
	"os"
	"rifa/src/common"
	"rifa/src/db"
	"rifa/src/lib"
	awslib "rifa/src/lib/aws"
	"rifa/src/models"
	"rifa/src/types"
	"rifa/src/utils"
	"strconv"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func InitDb() *gorm.DB {
	db := db.GetDb()

	err := db.AutoMigrate(
		&models.User{},
		&models.Raffle{},
		&models.Ticket{},
		&models.Participant{},
		&models.Payment{},
		&models.Drawing{},
	)
	if err != nil {
		log.Fatalf("error migration: %s", err.Error())
	}

	SeedAdminUser(db)
	return db
}

// SeedAdminUser creates the initial admin account from the environment
// on first boot. Subsequent boots are a no-op.
func SeedAdminUser(db *gorm.DB) {
	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		return
	}
	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		log.Printf("Error checking admin user: %s\n", err.Error())
		return
	}
	if count > 0 {
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("Error hashing admin password: %s\n", err.Error())
		return
	}
	admin := models.User{
		Name:         "Admin",
		Email:        email,
		PasswordHash: string(hash),
		Role:         types.ROLE_ADMIN,
	}
	if err := db.Create(&admin).Error; err != nil {
		log.Printf("Error seeding admin user: %s\n", err.Error())
		return
	}
	log.Printf("Seeded admin user [%d]\n", admin.ID)
}

func InitBroker() {
	go lib.KafkaCreateTopics("raffles-open", "raffles-close", "drawings-performed", os.Getenv("EMAIL_QUEUE"))
	go common.RafflesCloseConsumer()
	go common.DrawingsPerformedConsumer()
	if os.Getenv("API_ENV") == "local" {
		go common.EmailsConsumer()
	} else {
		consumer := awslib.NewSQSConsumer(os.Getenv("EMAIL_QUEUE"), func(payload string) {
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
				log.Printf("[SQS] Error sending email: %s\n", err.Error())
			}
		})
		consumer.Listen()
	}
}

func InitScheduler() {
	sched, err := lib.GetScheduler()
	if err != nil {
		log.Println("An error has occurred. Check logs for info")
		return
	}

	holdHours := 24
	if v, err := strconv.Atoi(os.Getenv("RESERVATION_HOLD_HOURS")); err == nil && v > 0 {
		holdHours = v
	}
	if _, err := lib.CreateCronJob(common.ExpireStaleReservations, 15*time.Minute, holdHours); err != nil {
		log.Printf("Error scheduling reservation sweep: %s\n", err.Error())
	}
	if _, err := lib.CreateCronJob(common.CloseExpiredRaffles, 1*time.Hour); err != nil {
		log.Printf("Error scheduling raffle close sweep: %s\n", err.Error())
	}

	go RecoverRaffleDeadlines()
	sched.Start()
}

func StopScheduler() {
	sched, err := lib.GetScheduler()
	if err != nil {
		log.Println("Error retrieving Scheduler. Check logs for info")
		return
	}
	if err := sched.Shutdown(); err != nil {
		log.Println("An error has occurred while stopping Scheduler. Check logs for info")
		return
	}
}

// RecoverRaffleDeadlines re-queues one-time close jobs for active
// raffles after a restart. Raffles already past their end date are
// closed immediately.
func RecoverRaffleDeadlines() {
	db := db.GetDb()
	var raffles []models.Raffle
	if err := db.
		Select("id", "end_date").
		Where("status = ?", types.RAFFLE_ACTIVE).
		Find(&raffles).
		Error; err != nil {
		log.Printf("Error listing active raffles: %s\n", err.Error())
		return
	}
	now := time.Now()
	for _, raffle := range raffles {
		if raffle.EndDate.Before(now) {
			if err := utils.CloseRaffle(raffle.ID); err != nil {
				log.Printf("Error closing raffle [%d]: %s\n", raffle.ID, err.Error())
			}
			continue
		}
		id := raffle.ID
		if _, err := lib.CreateOneTimeJob(raffle.EndDate, func() {
			if err := utils.CloseRaffle(id); err != nil {
				log.Printf("Error closing raffle [%d]: %s\n", id, err.Error())
			}
		}); err != nil {
			log.Printf("Error scheduling close for raffle [%d]: %s\n", id, err.Error())
		}
	}
	log.Printf("Recovered close jobs for %d active raffles\n", len(raffles))
}
