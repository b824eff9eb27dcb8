package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/kswpuk/portal-api/config"
	"github.com/kswpuk/portal-api/database"
	"github.com/kswpuk/portal-api/internal/allocation"
	"github.com/kswpuk/portal-api/internal/application"
	"github.com/kswpuk/portal-api/internal/auditlog"
	"github.com/kswpuk/portal-api/internal/events"
	"github.com/kswpuk/portal-api/internal/jobs"
	"github.com/kswpuk/portal-api/internal/member"
	"github.com/kswpuk/portal-api/internal/notification"
	"github.com/kswpuk/portal-api/internal/payment"
	"github.com/kswpuk/portal-api/routes"
	"github.com/kswpuk/portal-api/utils"
)

// @title KSWP Portal API
// @version 1.0
// @description Membership, events and allocation backend for the KSWP volunteering programme
// @BasePath /api/v1
func main() {
	cfg := config.Load()
	db := database.Connect(cfg)

	// Init Redis
	if err := utils.InitRedis(cfg); err != nil {
		log.Printf("⚠️ Redis init failed: %v", err)
		log.Println("ℹ️ Continuing without Redis (rate limits are per-instance, jobs are not coordinated)")
	}

	// Init Kafka
	utils.InitializeKafka(cfg)
	defer utils.CloseKafka()

	// Init Firebase
	log.Println("🔄 Initializing Firebase...")
	if err := utils.InitFirebase(cfg); err != nil {
		log.Printf("⚠️ Firebase initialization failed: %v", err)
		log.Println("ℹ️ Continuing without Firebase (push notifications will be disabled)")
	} else if utils.IsFCMEnabled() {
		log.Println("✅ Firebase and FCM initialized successfully")
	}

	// Init SMTP
	utils.InitEmail(cfg)

	// Auto-migrate models
	log.Println("🔄 Running database migrations...")
	if err := db.AutoMigrate(
		&auditlog.AuditLog{},
		&member.Member{},
		&events.EventSeries{},
		&events.EventInstance{},
		&allocation.Allocation{},
		&application.Application{},
		&application.Reference{},
		&payment.Payment{},
		&notification.DeviceToken{},
		&notification.NotificationLog{},
	); err != nil {
		panic(fmt.Sprintf("❌ DB AutoMigrate failed: %v", err))
	}
	log.Println("✅ Database migrations completed")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Shared services for the background workers
	auditSvc := auditlog.NewService(auditlog.NewRepository(db))
	memberRepo := member.NewRepository(db)
	eventsRepo := events.NewRepository(db)
	allocationRepo := allocation.NewRepository(db)
	notificationRepo := notification.NewRepository(db)

	// Allocation notification consumer
	if cfg.KafkaBrokers != "" {
		consumer := notification.NewConsumer(
			utils.NewAllocationsReader(cfg, "portal-api"),
			notificationRepo,
			memberRepo,
			eventsRepo,
			notification.NewEmailChannel(cfg),
			notification.NewFCMChannel(),
			auditSvc,
		)
		go consumer.Run(ctx)
	}

	// Scheduled jobs
	membershipSweep := jobs.NewMembershipSweep(memberRepo, cfg)
	eventReminder := jobs.NewEventReminder(eventsRepo, allocationRepo, memberRepo, cfg)
	allocationReminder := jobs.NewAllocationReminder(eventsRepo, allocationRepo, cfg)
	jobs.NewRunner(
		jobs.Job{Name: "membership-sweep", Interval: 24 * time.Hour, Run: membershipSweep.Run},
		jobs.Job{Name: "event-reminder", Interval: 24 * time.Hour, Run: eventReminder.Run},
		jobs.Job{Name: "allocation-reminder", Interval: 24 * time.Hour, Run: allocationReminder.Run},
	).Start(ctx)

	// Setup Gin router
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"https://" + cfg.PortalDomain, "http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.Setup(router, cfg)

	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("🚀 Portal API listening on :%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("❌ Server failed: %v", err)
	}
}
