package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"ShopPOS/app/models"
)

const (
	defaultSyncTime     = "23:00"
	schedulerStartDelay = 30 * time.Second
	schedulerRetryDelay = time.Minute
)

// ReportScheduler pushes the daily report to Google Sheets on a timer
type ReportScheduler struct {
	sheets *SheetsService
	logger *LoggerService

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// NewReportScheduler creates a scheduler around the export service; logger may be nil
func NewReportScheduler(sheets *SheetsService, logger *LoggerService) *ReportScheduler {
	return &ReportScheduler{sheets: sheets, logger: logger}
}

// Start begins the scheduler when auto-sync is enabled
func (s *ReportScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler is already running")
	}

	config, err := s.sheets.GetConfig()
	if err != nil {
		return fmt.Errorf("failed to get config: %w", err)
	}
	if !config.IsEnabled || !config.AutoSync {
		log.Println("Google Sheets auto-sync is disabled")
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	go s.run(ctx, s.done)

	log.Println("Report scheduler started")
	return nil
}

// Stop stops the scheduler and waits for the loop to exit
func (s *ReportScheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel, done := s.cancel, s.done
	s.running = false
	s.mu.Unlock()

	cancel()
	<-done
	log.Println("Report scheduler stopped")
}

// Restart stops and starts the scheduler (after a config change)
func (s *ReportScheduler) Restart() error {
	s.Stop()
	return s.Start()
}

// IsRunning reports whether the loop is active
func (s *ReportScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *ReportScheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	if s.logger != nil {
		defer s.logger.RecoverPanic()
	}

	wait := schedulerStartDelay
	first := true
	for {
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		config, err := s.sheets.GetConfig()
		if err != nil {
			log.Printf("Error getting Google Sheets config: %v", err)
			wait = schedulerRetryDelay
			continue
		}
		if !config.IsEnabled || !config.AutoSync {
			log.Println("Auto-sync disabled, stopping scheduler")
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
			return
		}

		if !first {
			log.Println("Starting scheduled Google Sheets sync...")
			if err := s.executeSync(ctx, config); err != nil {
				log.Printf("Scheduled sync failed: %v", err)
			} else {
				log.Println("Scheduled sync completed successfully")
			}
		}

		first = false
		wait = NextSyncDelay(time.Now(), config)
		log.Printf("Next Google Sheets sync scheduled in %v", wait.Round(time.Second))
	}
}

// executeSync sends the last complete day in daily mode and today in interval mode
func (s *ReportScheduler) executeSync(ctx context.Context, config *models.GoogleSheetsConfig) error {
	date := s.sheets.today()
	if config.SyncMode == models.SyncModeDaily {
		date = date.AddDate(0, 0, -1)
	}
	return s.sheets.SyncDate(ctx, date)
}

// NextSyncDelay is the wait before the next sync: the configured interval, or
// the time left until the next SyncTime in daily mode
func NextSyncDelay(now time.Time, config *models.GoogleSheetsConfig) time.Duration {
	if config.SyncMode != models.SyncModeDaily {
		minutes := config.SyncInterval
		if minutes <= 0 {
			minutes = 60
		}
		return time.Duration(minutes) * time.Minute
	}

	at, err := time.Parse("15:04", config.SyncTime)
	if err != nil {
		log.Printf("Invalid sync time format: %s, using %s", config.SyncTime, defaultSyncTime)
		at, _ = time.Parse("15:04", defaultSyncTime)
	}

	target := time.Date(now.Year(), now.Month(), now.Day(), at.Hour(), at.Minute(), 0, 0, now.Location())
	if !target.After(now) {
		target = target.AddDate(0, 0, 1)
	}
	return target.Sub(now)
}

// GetStatus returns the current scheduler status
func (s *ReportScheduler) GetStatus() map[string]interface{} {
	status := map[string]interface{}{
		"running": s.IsRunning(),
		"enabled": false,
	}

	config, err := s.sheets.GetConfig()
	if err != nil {
		return status
	}
	status["enabled"] = config.IsEnabled && config.AutoSync
	status["sync_mode"] = config.SyncMode
	status["sync_interval"] = config.SyncInterval
	status["sync_time"] = config.SyncTime
	status["last_sync_at"] = config.LastSyncAt
	status["last_sync_status"] = config.LastSyncStatus
	status["total_syncs"] = config.TotalSyncs
	return status
}
