package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"ShopPOS/app/config"
	"ShopPOS/app/database"
	"ShopPOS/app/services"
	"ShopPOS/app/websocket"

	"github.com/joho/godotenv"
)

const (
	logRetentionDays = 30
	shutdownTimeout  = 15 * time.Second
)

// App holds the long-lived components of the back office
type App struct {
	Logger    *services.LoggerService
	Config    *config.AppConfig
	Services  *services.Services
	Server    *websocket.Server
	Scheduler *services.ReportScheduler
}

func listenAddr(port string) string {
	if strings.Contains(port, ":") {
		return port
	}
	return ":" + port
}

// startup wires services, the HTTP server and the report scheduler
func (a *App) startup() error {
	a.Logger.LogInfo("Initializing database", "Driver: "+a.Config.Database.Driver)
	if err := database.Initialize(a.Config); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	a.Services = services.NewServices(database.GetDB(), a.Config.Shop)

	addr := listenAddr(a.Config.Server.Port)
	a.Logger.LogInfo("Initializing HTTP server", "Address: "+addr)
	a.Server = websocket.NewServer(addr, a.Services, a.Logger)
	a.Server.EnableMDNS(a.Config.Server.AnnounceMDNS)
	// Committed changes are pushed to connected screens
	a.Services.SetNotifier(a.Server)

	a.Scheduler = services.NewReportScheduler(a.Services.Sheets, a.Logger)
	go func() {
		defer a.Logger.RecoverPanic()
		if err := a.Scheduler.Start(); err != nil {
			a.Logger.LogWarning("Report scheduler start error", err.Error())
		}
	}()

	go func() {
		defer a.Logger.RecoverPanic()
		if err := a.Server.Start(); err != nil {
			a.Logger.LogError("HTTP server error", err)
		}
	}()

	return nil
}

// shutdown sends the final report and stops every component
func (a *App) shutdown() {
	a.Logger.LogInfo("Application closing")

	if a.Services != nil {
		if cfg, err := a.Services.Sheets.GetConfig(); err == nil && cfg.IsEnabled {
			a.Logger.LogInfo("Sending final report to Google Sheets")
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			if err := a.Services.Sheets.SyncNow(ctx); err != nil {
				a.Logger.LogWarning("Failed to send final report to Google Sheets", err.Error())
			}
			cancel()
		}
	}

	if a.Scheduler != nil {
		a.Logger.LogInfo("Stopping report scheduler")
		a.Scheduler.Stop()
	}

	if a.Server != nil {
		a.Logger.LogInfo("Stopping HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := a.Server.Shutdown(ctx); err != nil {
			a.Logger.LogError("Error stopping HTTP server", err)
		}
		cancel()
	}

	if err := database.Close(); err != nil {
		a.Logger.LogError("Error closing database", err)
	} else {
		a.Logger.LogInfo("Database connection closed successfully")
	}

	a.Logger.LogInfo("Application shutdown complete")
}

func main() {
	// Load environment variables from .env file in project root (for development)
	envErr := godotenv.Load(".env")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("CRITICAL: could not load configuration: %v", err)
	}

	loggerService := services.NewLoggerService(cfg.System.LogDir)
	defer loggerService.Close()

	// Recover from any panic and log it
	defer func() {
		if r := recover(); r != nil {
			loggerService.LogPanic(r)
			os.Exit(1)
		}
	}()

	loggerService.LogInfo("Application starting", "Shop POS back office")
	if envErr != nil {
		loggerService.LogWarning(".env file not found, using config.json and environment")
	}
	if err := loggerService.CleanOldLogs(logRetentionDays); err != nil {
		loggerService.LogWarning("Could not clean old logs", err.Error())
	}

	app := &App{Logger: loggerService, Config: cfg}
	if err := app.startup(); err != nil {
		loggerService.LogError("Startup failed", err)
		os.Exit(1)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	sig := <-stop
	loggerService.LogInfo("Signal received", sig.String())

	app.shutdown()
}
