package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/go-chi/chi/v5"

	"github.com/examdesk/exam-scheduler-api/internal/config"
	"github.com/examdesk/exam-scheduler-api/internal/database"
	"github.com/examdesk/exam-scheduler-api/internal/engine"
	"github.com/examdesk/exam-scheduler-api/internal/handlers"
	"github.com/examdesk/exam-scheduler-api/internal/notifier"
)

func main() {
	// Load Configuration
	cfg := config.LoadConfig()

	// Connect to Database
	db := database.Connect(cfg)

	// Initialize Notifier
	var staffNotifier notifier.Notifier
	if cfg.DiscordBotToken != "" && cfg.DiscordNotificationsChannelID != "" {
		session, err := discordgo.New("Bot " + cfg.DiscordBotToken)
		if err != nil {
			log.Printf("Discord notifier not initialized: %v", err)
		} else {
			staffNotifier = notifier.NewDiscordNotifier(session, cfg.DiscordNotificationsChannelID)
		}
	}

	// Initialize Engine
	eng := engine.New(db, staffNotifier, engine.Options{
		DefaultCapacityPerDay: cfg.DefaultCapacityPerDay,
		DefaultTimes: engine.TimeSettings{
			MorningStart:   cfg.MorningStart,
			MorningEnd:     cfg.MorningEnd,
			AfternoonStart: cfg.AfternoonStart,
			AfternoonEnd:   cfg.AfternoonEnd,
		},
	})

	// Initialize Handlers
	windowHandler := handlers.NewWindowHandler(eng)
	scheduleHandler := handlers.NewScheduleHandler(eng)
	registrationHandler := handlers.NewRegistrationHandler(eng)
	sweepHandler := handlers.NewSweepHandler(eng)

	// Initialize Router
	r := chi.NewRouter()

	// Register Routes
	handlers.RegisterRoutes(r, windowHandler, scheduleHandler, registrationHandler, sweepHandler)

	// Scheduled sweeps
	if cfg.SweepIntervalMinutes > 0 {
		go runSweepLoop(eng, time.Duration(cfg.SweepIntervalMinutes)*time.Minute)
	}

	// Start Server
	log.Printf("Starting server on port %s", cfg.Port)
	if err := http.ListenAndServe(fmt.Sprintf(":%s", cfg.Port), r); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func runSweepLoop(eng *engine.Engine, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		ctx := context.Background()
		if closed, err := eng.AutoCloseIfExpired(ctx); err != nil {
			log.Printf("Window expiry check failed: %v", err)
		} else if closed {
			log.Printf("Registration window closed: period expired")
		}

		report, err := eng.RunSweeps(ctx)
		if err != nil {
			log.Printf("Sweep run failed: %v", err)
			continue
		}
		if report.CancelledNoShows > 0 || report.ClosedSchedules > 0 || report.WindowClosed {
			log.Printf("Sweep run: %d no-shows cancelled, %d schedules closed, window closed=%v",
				report.CancelledNoShows, report.ClosedSchedules, report.WindowClosed)
		}
	}
}
