package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/enrichman/httpgrace"

	"github.com/inkwell-app/inkwell/internal/api/route"
	appctx "github.com/inkwell-app/inkwell/internal/app"
	"github.com/inkwell-app/inkwell/internal/auth"
	"github.com/inkwell-app/inkwell/internal/config"
	"github.com/inkwell-app/inkwell/internal/editing"
	"github.com/inkwell-app/inkwell/internal/flags"
	"github.com/inkwell-app/inkwell/internal/logger"
	"github.com/inkwell-app/inkwell/internal/repository"
)

func main() {
	// .env is optional; real deployments use the environment directly.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithComponent("main").Fatalf("configuration error: %v", err)
	}

	logLevel := logger.SetLevelFromString(cfg.Misc.LogLevel)
	logger.WithComponent("main").Debugf("log level set to: %s", logLevel.String())
	logger.WithComponent("main").Infof("App will run on port: %d", cfg.Server.Port)

	repo, err := repository.NewSQLiteRepository(cfg.Storage.DBPath)
	if err != nil {
		logger.WithComponent("main").Fatalf("cannot init repository: %v", err)
	}
	defer repo.Close()

	var flagStore *flags.Store
	if cfg.Flags.FilePath != "" {
		flagStore, err = flags.New(cfg.Flags.FilePath)
		if err != nil {
			logger.WithComponent("main").Fatalf("cannot init feature flags: %v", err)
		}
	}

	sessions := editing.NewManager(editing.Config{
		Store:    repo,
		Debounce: cfg.Autosave.Debounce,
		TTL:      cfg.Autosave.SessionTTL,
		Gate: func() bool {
			return flagStore == nil || flagStore.Enabled(flags.AutosaveEnabled, true)
		},
	})

	var authProvider auth.Provider
	if cfg.Auth.ClerkSecretKey != "" {
		authProvider = auth.NewClerkProvider(cfg.Auth.ClerkSecretKey)
	} else {
		logger.WithComponent("main").Warn("CLERK_SECRET_KEY not set, using static dev auth")
		authProvider = auth.NewStaticProvider("dev-user")
	}

	app, err := appctx.New(cfg, repo, flagStore, sessions, authProvider)
	if err != nil {
		logger.WithComponent("main").Fatalf("cannot init app: %v", err)
	}
	defer app.Shutdown()

	if err := app.StartBackground(); err != nil {
		logger.WithComponent("main").Fatalf("cannot start background workers: %v", err)
	}

	gin.SetMode(cfg.Misc.GinMode)
	gin.DefaultWriter = logger.Logger.Writer()
	gin.DefaultErrorWriter = logger.Logger.Writer()

	r := gin.New()
	route.SetupRoutes(r, app)

	srv := createGraceHttpServer(app.BaseCtx, "main-server", app.Config.Server, r)
	if err := srv.ListenAndServe(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithComponent("main").Fatal(err)
	}
}

func createGraceHttpServer(ctx context.Context, name string, serverConfig config.ServerConfig, r *gin.Engine) *httpgrace.Server {
	slogLogger := slog.New(slog.NewTextHandler(logger.Logger.Writer(), nil))

	srv := httpgrace.NewServer(r,
		httpgrace.WithTimeout(serverConfig.ShutDownTimeout),
		httpgrace.WithSignals(syscall.SIGTERM, syscall.SIGINT),
		httpgrace.WithLogger(slogLogger),
		httpgrace.WithBeforeShutdown(func() {
			logger.WithComponent("http").Infof("Shutting down %s server....", name)
		}),
		httpgrace.WithServerOptions(
			httpgrace.WithReadTimeout(serverConfig.ReadTimeout),
			httpgrace.WithWriteTimeout(serverConfig.WriteTimeout),
			httpgrace.WithIdleTimeout(serverConfig.IdleTimeout),
			func(srv *http.Server) {
				srv.BaseContext = func(_ net.Listener) context.Context {
					return ctx
				}
			},
			func(srv *http.Server) {
				srv.ErrorLog = log.New(logger.Logger.Writer(), fmt.Sprintf("[%s] ", name), log.LstdFlags)
			},
		),
	)
	return srv
}
