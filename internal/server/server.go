package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/utilitybill/internal/audit"
	auditdomain "github.com/smallbiznis/utilitybill/internal/audit/domain"
	"github.com/smallbiznis/utilitybill/internal/bill"
	billdomain "github.com/smallbiznis/utilitybill/internal/bill/domain"
	"github.com/smallbiznis/utilitybill/internal/config"
	"github.com/smallbiznis/utilitybill/internal/events"
	"github.com/smallbiznis/utilitybill/internal/house"
	housedomain "github.com/smallbiznis/utilitybill/internal/house/domain"
	"github.com/smallbiznis/utilitybill/internal/lock"
	"github.com/smallbiznis/utilitybill/internal/mohalla"
	mohalladomain "github.com/smallbiznis/utilitybill/internal/mohalla/domain"
	"github.com/smallbiznis/utilitybill/internal/observability"
	obslogger "github.com/smallbiznis/utilitybill/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/utilitybill/internal/observability/metrics"
	obstracing "github.com/smallbiznis/utilitybill/internal/observability/tracing"
	"github.com/smallbiznis/utilitybill/internal/payment"
	paymentdomain "github.com/smallbiznis/utilitybill/internal/payment/domain"
	"github.com/smallbiznis/utilitybill/internal/providers"
	"github.com/smallbiznis/utilitybill/internal/ratelimit"
	"github.com/smallbiznis/utilitybill/internal/reading"
	readingdomain "github.com/smallbiznis/utilitybill/internal/reading/domain"
	"github.com/smallbiznis/utilitybill/internal/tariff"
	tariffdomain "github.com/smallbiznis/utilitybill/internal/tariff/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// DomainModule wires every billing service. It is shared by the API and the
// scheduler binaries.
var DomainModule = fx.Options(
	lock.Module,
	events.Module,
	audit.Module,
	providers.Module,
	mohalla.Module,
	house.Module,
	reading.Module,
	tariff.Module,
	bill.Module,
	payment.Module,
)

var Module = fx.Module("http.server",
	ratelimit.Module,
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(run),
)

// NewEngine builds the gin engine with the shared middleware chain.
func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

type Server struct {
	engine *gin.Engine
	cfg    config.Config
	log    *zap.Logger

	limiter bulkLimiter

	auditSvc   auditdomain.Service
	mohallaSvc mohalladomain.Service
	houseSvc   housedomain.Service
	readingSvc readingdomain.Service
	tariffSvc  tariffdomain.Service
	billSvc    billdomain.Service
	paymentSvc paymentdomain.Service
}

type ServerParams struct {
	fx.In

	Gin *gin.Engine
	Cfg config.Config
	Log *zap.Logger

	AuditSvc   auditdomain.Service
	MohallaSvc mohalladomain.Service
	HouseSvc   housedomain.Service
	ReadingSvc readingdomain.Service
	TariffSvc  tariffdomain.Service
	BillSvc    billdomain.Service
	PaymentSvc paymentdomain.Service

	Limiter *ratelimit.BulkLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		log:        p.Log.Named("http.server"),
		limiter:    p.Limiter,
		auditSvc:   p.AuditSvc,
		mohallaSvc: p.MohallaSvc,
		houseSvc:   p.HouseSvc,
		readingSvc: p.ReadingSvc,
		tariffSvc:  p.TariffSvc,
		billSvc:    p.BillSvc,
		paymentSvc: p.PaymentSvc,
	}

	s.registerAPIRoutes()
	s.registerFallback()

	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	mohallas := api.Group("/mohallas")
	{
		mohallas.POST("", s.CreateMohalla)
		mohallas.GET("", s.ListMohallas)
		mohallas.GET("/:id", s.GetMohalla)
		mohallas.PATCH("/:id", s.UpdateMohalla)
		mohallas.DELETE("/:id", s.DeleteMohalla)
	}

	houses := api.Group("/houses")
	{
		houses.POST("", s.CreateHouse)
		houses.GET("", s.ListHouses)
		houses.GET("/:id", s.GetHouse)
		houses.PATCH("/:id", s.UpdateHouse)
		houses.DELETE("/:id", s.DeleteHouse)
	}

	readings := api.Group("/readings")
	{
		readings.POST("", s.UpsertReading)
		readings.POST("/import", s.bulkRateLimit("import"), s.ImportReadings)
		readings.GET("", s.ListReadings)
		readings.GET("/:id", s.GetReading)
		readings.DELETE("/:id", s.DeleteReading)
		readings.POST("/:id/recalculate", s.RecalculateReading)
	}

	tariffs := api.Group("/tariffs")
	{
		tariffs.GET("", s.ListTariffs)
		tariffs.GET("/effective", s.EffectiveTariffs)
		tariffs.PUT("/:code", s.SetTariff)
	}

	bills := api.Group("/bills")
	{
		bills.POST("/generate", s.GenerateBill)
		bills.POST("/generate-batch", s.bulkRateLimit("generate"), s.GenerateBillBatch)
		bills.GET("", s.ListBills)
		bills.GET("/summary", s.BillSummary)
		bills.GET("/export", s.bulkRateLimit("documents"), s.ExportBills)
		bills.GET("/:id", s.GetBill)
		bills.GET("/:id/pdf", s.bulkRateLimit("documents"), s.BillPDF)
		bills.POST("/:id/regenerate", s.RegenerateBill)
		bills.DELETE("/:id", s.DeleteBill)
	}

	payments := api.Group("/payments")
	{
		payments.POST("", s.RecordPayment)
		payments.GET("", s.ListPayments)
		payments.GET("/:id", s.GetPayment)
		payments.GET("/:id/receipt", s.bulkRateLimit("documents"), s.PaymentReceipt)
	}

	api.GET("/audit-logs", s.ListAuditLogs)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(spaFallback(s.cfg.StaticDir))
}

func run(lc fx.Lifecycle, s *Server, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}
