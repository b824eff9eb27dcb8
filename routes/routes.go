package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kswpuk/portal-api/config"
	"github.com/kswpuk/portal-api/database"
	"github.com/kswpuk/portal-api/internal/allocation"
	"github.com/kswpuk/portal-api/internal/application"
	"github.com/kswpuk/portal-api/internal/auditlog"
	"github.com/kswpuk/portal-api/internal/events"
	"github.com/kswpuk/portal-api/internal/member"
	"github.com/kswpuk/portal-api/internal/notification"
	"github.com/kswpuk/portal-api/internal/payment"
	"github.com/kswpuk/portal-api/internal/reports"
	"github.com/kswpuk/portal-api/middleware"

	_ "github.com/kswpuk/portal-api/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Setup wires every module onto the router. Handlers own the HTTP shape,
// middleware owns who may call what.
func Setup(r *gin.Engine, cfg *config.Config) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api/v1")
	api.Use(middleware.RateLimiter())
	api.Use(middleware.AuditMiddleware())

	// ========== Audit Log Module ==========
	auditRepo := auditlog.NewRepository(database.DB)
	auditSvc := auditlog.NewService(auditRepo)
	auditHandler := auditlog.NewHandler(auditSvc)

	// ========== Members ==========
	memberRepo := member.NewRepository(database.DB)
	memberSvc := member.NewService(memberRepo, auditSvc)
	memberHandler := member.NewHandler(memberSvc)

	// ========== Events ==========
	eventsRepo := events.NewRepository(database.DB)
	eventsSvc := events.NewService(eventsRepo, auditSvc)
	eventsHandler := events.NewHandler(eventsSvc)

	// ========== Allocations ==========
	allocationRepo := allocation.NewRepository(database.DB)
	dispatcher := notification.NewDefaultDispatcher()
	allocationSvc := allocation.NewService(allocationRepo, memberSvc, eventsRepo, allocation.NewSelector(), dispatcher, auditSvc)
	allocationHandler := allocation.NewHandler(allocationSvc)

	// ========== Applications ==========
	applicationRepo := application.NewRepository(database.DB)
	applicationSvc := application.NewService(applicationRepo, memberRepo, auditSvc, cfg)
	applicationHandler := application.NewHandler(applicationSvc)

	// ========== Payments ==========
	paymentRepo := payment.NewRepository(database.DB)
	paymentSvc := payment.NewService(paymentRepo, memberRepo, cfg, auditSvc)
	paymentHandler := payment.NewHandler(paymentSvc)

	// ========== Notifications ==========
	notificationRepo := notification.NewRepository(database.DB)
	notificationSvc := notification.NewService(notificationRepo)
	notificationHandler := notification.NewHandler(notificationSvc)

	// ========== Reports ==========
	reportsSvc := reports.NewService(memberRepo, memberSvc, allocationSvc, eventsRepo, allocationRepo, auditSvc)
	reportsHandler := reports.NewHandler(reportsSvc)

	// ========== Public routes ==========
	// Prospective members and their referees have no portal account
	api.POST("/applications/:membershipNumber", applicationHandler.Submit)
	api.POST("/applications/:membershipNumber/status", applicationHandler.GetStatus)
	api.POST("/applications/:membershipNumber/references", applicationHandler.SubmitReference)

	// ========== Authenticated routes ==========
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(cfg))

	applicationRoutes := protected.Group("/applications")
	applicationRoutes.Use(middleware.RequireGroup(middleware.GroupMembers))
	{
		applicationRoutes.GET("", applicationHandler.List)
		applicationRoutes.GET("/report", applicationHandler.GetReport)
		applicationRoutes.POST("/:membershipNumber/approve", applicationHandler.Approve)
		applicationRoutes.POST("/:membershipNumber/references/accept", applicationHandler.AcceptReference)
		applicationRoutes.PUT("/:membershipNumber/number", applicationHandler.ReplaceNumber)
		applicationRoutes.DELETE("/:membershipNumber", applicationHandler.Reject)
	}

	memberRoutes := protected.Group("/members")
	{
		memberRoutes.GET("", memberHandler.ListMembers)
		memberRoutes.GET("/report", middleware.RequireGroup(middleware.GroupMembers, middleware.GroupCommittee), memberHandler.MemberReport)
		memberRoutes.GET("/awards", middleware.RequireGroup(middleware.GroupCommittee), reportsHandler.AwardCandidates)
		memberRoutes.POST("/compare", middleware.RequireGroup(middleware.GroupMembers), memberHandler.CompareMembers)
		memberRoutes.POST("/export", middleware.RequireGroup(middleware.GroupMembers), reportsHandler.MemberExport)

		memberRoutes.GET("/:membershipNumber", middleware.RequireSelfOrGroup("membershipNumber", middleware.GroupMembers, middleware.GroupCommittee), memberHandler.GetMember)
		memberRoutes.PUT("/:membershipNumber", middleware.RequireSelfOrGroup("membershipNumber", middleware.GroupMembers), memberHandler.UpdateMember)
		memberRoutes.POST("/:membershipNumber/suspended", middleware.RequireGroup(middleware.GroupMembers), memberHandler.SuspendMember)
		memberRoutes.DELETE("/:membershipNumber", middleware.RequireGroup(middleware.GroupMembers), memberHandler.DeleteMember)

		memberRoutes.GET("/:membershipNumber/allocations", middleware.RequireSelfOrGroup("membershipNumber", middleware.GroupEvents), allocationHandler.MemberAllocations)

		memberRoutes.POST("/:membershipNumber/payment", middleware.RequireSelfOrGroup("membershipNumber", middleware.GroupMoney), paymentHandler.StartRenewal)
		memberRoutes.POST("/:membershipNumber/payment/verify", middleware.RequireSelfOrGroup("membershipNumber", middleware.GroupMoney), paymentHandler.VerifyPayment)
		memberRoutes.GET("/:membershipNumber/payment", middleware.RequireSelfOrGroup("membershipNumber", middleware.GroupMoney), paymentHandler.History)
	}

	eventRoutes := protected.Group("/events")
	{
		eventRoutes.GET("", eventsHandler.ListUpcoming)
		eventRoutes.GET("/report", middleware.RequireGroup(middleware.GroupEvents), reportsHandler.EventOverview)
		eventRoutes.GET("/report/attendance", middleware.RequireGroup(middleware.GroupEvents), reportsHandler.Attendance)

		eventRoutes.GET("/series", eventsHandler.ListSeries)
		eventRoutes.POST("/series", middleware.RequireGroup(middleware.GroupEvents), eventsHandler.CreateSeries)
		eventRoutes.GET("/series/:seriesId", eventsHandler.GetSeries)
		eventRoutes.PUT("/series/:seriesId", middleware.RequireGroup(middleware.GroupEvents), eventsHandler.UpdateSeries)
		eventRoutes.DELETE("/series/:seriesId", middleware.RequireGroup(middleware.GroupEvents), eventsHandler.DeleteSeries)
		eventRoutes.GET("/series/:seriesId/instances", eventsHandler.ListInstances)
		eventRoutes.POST("/series/:seriesId/instances", middleware.RequireGroup(middleware.GroupEvents), eventsHandler.CreateInstance)

		eventRoutes.GET("/:seriesId/:eventId", eventsHandler.GetInstance)
		eventRoutes.PUT("/:seriesId/:eventId", middleware.RequireGroup(middleware.GroupEvents), eventsHandler.UpdateInstance)
		eventRoutes.DELETE("/:seriesId/:eventId", middleware.RequireGroup(middleware.GroupEvents), eventsHandler.DeleteInstance)

		eventRoutes.POST("/:seriesId/:eventId/register/:membershipNumber",
			middleware.RequireSelfOrGroup("membershipNumber", middleware.GroupEvents), allocationHandler.Register)
		eventRoutes.GET("/:seriesId/:eventId/eligibility/:membershipNumber",
			middleware.RequireSelfOrGroup("membershipNumber", middleware.GroupEvents), allocationHandler.Eligibility)

		eventRoutes.GET("/:seriesId/:eventId/allocations", middleware.RequireGroup(middleware.GroupEvents), allocationHandler.ListAllocations)
		eventRoutes.PUT("/:seriesId/:eventId/allocate", middleware.RequireGroup(middleware.GroupEvents), allocationHandler.SetAllocations)
		eventRoutes.GET("/:seriesId/:eventId/allocate/suggest", middleware.RequireGroup(middleware.GroupEvents), allocationHandler.Suggest)
		eventRoutes.PUT("/:seriesId/:eventId/allocate/:membershipNumber", middleware.RequireGroup(middleware.GroupEvents), allocationHandler.SetAllocation)
		eventRoutes.DELETE("/:seriesId/:eventId/allocate/:membershipNumber", middleware.RequireGroup(middleware.GroupEvents), allocationHandler.DeleteAllocation)
	}

	notificationRoutes := protected.Group("/notifications")
	{
		notificationRoutes.GET("", notificationHandler.History)
		notificationRoutes.POST("/devices", notificationHandler.RegisterDevice)
		notificationRoutes.DELETE("/devices/:token", notificationHandler.RemoveDevice)
	}

	auditRoutes := protected.Group("/auditlogs")
	auditRoutes.Use(middleware.RequireGroup(middleware.GroupCommittee))
	{
		auditRoutes.GET("", auditHandler.GetAuditLogs)
		auditRoutes.GET("/:id", auditHandler.GetAuditLogByID)
	}
}
