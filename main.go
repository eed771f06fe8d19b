package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/mindbloom/mindbloom-backend/internal/assessment"
	"github.com/mindbloom/mindbloom-backend/internal/auth"
	"github.com/mindbloom/mindbloom-backend/internal/config"
	"github.com/mindbloom/mindbloom-backend/internal/db"
	"github.com/mindbloom/mindbloom-backend/internal/doctors"
	"github.com/mindbloom/mindbloom-backend/internal/hospitals"
	"github.com/mindbloom/mindbloom-backend/internal/logger"
	"github.com/mindbloom/mindbloom-backend/internal/middleware"
	"github.com/mindbloom/mindbloom-backend/internal/questionnaire"
	"github.com/mindbloom/mindbloom-backend/internal/stressmap"
	"github.com/mindbloom/mindbloom-backend/internal/utils"
	"github.com/sirupsen/logrus"
)

func RootHandler(w http.ResponseWriter, r *http.Request) {
	response := "Server is up!"
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, response)
}

// newGuards builds the admin chain (allowed IP, signed-in session, admin role)
// and the per-IP burst limiter used on write routes.
func newGuards(cfg config.Config, limiter *middleware.IPRateLimiter) middleware.Guards {
	sessionInfo := auth.SessionInfo{}
	allowlist := middleware.AdminIPAllowlist(cfg.AllowedAdminIPs)
	session := middleware.SessionMiddleware(sessionInfo)
	admin := middleware.AdminMiddleware(sessionInfo)

	return middleware.Guards{
		Admin: func(next http.Handler) http.Handler {
			return allowlist(session(admin(next)))
		},
		Limit: limiter.Middleware,
	}
}

func newRouter(cfg config.Config, guards middleware.Guards, gen *questionnaire.Generator) http.Handler {
	regions := stressmap.NewStore(db.DB)
	aggregates := assessment.NewGormRepository(db.DB)

	trusted, err := utils.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		logrus.WithError(err).Warn("ignoring TRUSTED_PROXIES; forwarding headers will not be trusted")
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.ClientIPMiddleware(trusted))
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.Get("/", RootHandler)

	r.Mount("/auth", auth.SetupRoutes(guards, cfg.CookieSecure))
	r.Mount("/assessment", assessment.SetupRoutes(assessment.NewService(aggregates, regions), guards))
	r.Mount("/stressmap", stressmap.SetupRoutes(stressmap.NewService(regions, aggregates)))
	r.Mount("/doctors", doctors.SetupRoutes(guards))
	r.Mount("/hospitals", hospitals.SetupRoutes(guards))
	r.Mount("/questionnaire", questionnaire.SetupRoutes(gen, guards))

	return r
}

func main() {
	_ = godotenv.Load(".env.local")

	cfg := config.LoadFromEnv()
	logger.Setup(cfg.LogFile, cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		logrus.Fatal("Invalid configuration: ", err)
	}

	if err := db.Connect(cfg.DatabaseURL); err != nil {
		logrus.Fatal("Failed to connect to database: ", err)
	}

	auth.Init()
	stressmap.Init()
	assessment.Init()
	doctors.Init()
	hospitals.Init()

	limiter := middleware.NewIPRateLimiter(cfg.SubmitRatePerMin, cfg.SubmitBurst, 10*time.Minute)
	defer limiter.Stop()

	gen := questionnaire.NewGenerator(cfg.PerplexityKey, cfg.PerplexityBaseURL, cfg.PerplexityModel)
	if !gen.Configured() {
		logrus.Warn("PERPLEXITY_API_KEY not set; questionnaire serves fallback questions only")
	}

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           newRouter(cfg, newGuards(cfg, limiter), gen),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logrus.Infof("Server listening on port :%s...", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatal("Server error: ", err)
		}
	}()

	<-ctx.Done()
	logrus.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Error("Graceful shutdown failed: ", err)
	}
}
