package services

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"
	"time"
)

const logDateLayout = "2006-01-02"

// LoggerService writes the process log to stdout and to one file per day
type LoggerService struct {
	mu         sync.Mutex
	logDir     string
	logFile    *os.File
	logger     *log.Logger
	currentDay string
	now        func() time.Time
}

// NewLoggerService creates a logger writing under logDir. An empty logDir
// means <user config dir>/ShopPOS/logs.
func NewLoggerService(logDir string) *LoggerService {
	service := &LoggerService{logDir: logDir, now: time.Now}
	service.initializeLogger()
	return service
}

func defaultLogDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return "logs"
	}
	return filepath.Join(base, "ShopPOS", "logs")
}

// initializeLogger sets up the logging system and redirects the standard logger
func (s *LoggerService) initializeLogger() {
	if s.logDir == "" {
		s.logDir = defaultLogDir()
	}
	if err := os.MkdirAll(s.logDir, 0755); err != nil {
		log.Printf("Warning: Could not create logs directory %s: %v", s.logDir, err)
		s.logDir = "logs"
		os.MkdirAll(s.logDir, 0755)
	}

	if err := s.rotateLogFile(); err != nil {
		log.Printf("Warning: Could not create log file: %v. Logging to stdout only.", err)
		s.logger = log.New(os.Stdout, "", log.LstdFlags)
		return
	}

	s.setOutput()
	s.LogInfo("Logger initialized", fmt.Sprintf("Log directory: %s", s.logDir))
}

func (s *LoggerService) setOutput() {
	out := io.MultiWriter(os.Stdout, s.logFile)
	if s.logger == nil {
		s.logger = log.New(out, "", log.LstdFlags)
	} else {
		s.logger.SetOutput(out)
	}
	log.SetOutput(out)
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}

// rotateLogFile opens the file of the current day
func (s *LoggerService) rotateLogFile() error {
	today := s.now().Format(logDateLayout)
	if s.currentDay == today && s.logFile != nil {
		return nil
	}

	if s.logFile != nil {
		s.logFile.Close()
	}

	file, err := os.OpenFile(filepath.Join(s.logDir, today+".log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	s.logFile = file
	s.currentDay = today
	return nil
}

func (s *LoggerService) checkAndRotate() {
	if s.now().Format(logDateLayout) == s.currentDay {
		return
	}
	if err := s.rotateLogFile(); err == nil {
		s.setOutput()
	}
}

func (s *LoggerService) write(level, message string, details []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkAndRotate()

	line := fmt.Sprintf("[%s] %s", level, message)
	if len(details) > 0 {
		line += " | " + strings.Join(details, " | ")
	}
	s.logger.Print(line)
}

// LogInfo logs an informational message
func (s *LoggerService) LogInfo(message string, details ...string) {
	s.write("INFO", message, details)
}

// LogWarning logs a warning message
func (s *LoggerService) LogWarning(message string, details ...string) {
	s.write("WARNING", message, details)
}

// LogError logs an error message
func (s *LoggerService) LogError(message string, err error, details ...string) {
	if err != nil {
		details = append([]string{fmt.Sprintf("Error: %v", err)}, details...)
	}
	s.write("ERROR", message, details)
}

// LogRequest logs one HTTP request of the REST API
func (s *LoggerService) LogRequest(method, path string, status int, elapsed time.Duration) {
	level := "INFO"
	if status >= 500 {
		level = "ERROR"
	} else if status >= 400 {
		level = "WARNING"
	}
	s.write(level, fmt.Sprintf("%s %s -> %d (%s)", method, path, status, elapsed.Round(time.Millisecond)), nil)
}

// LogPanic logs a panic with stack trace
func (s *LoggerService) LogPanic(recovered interface{}) {
	s.write("PANIC", fmt.Sprintf("Recovered from panic: %v", recovered), []string{"Stack trace:\n" + string(debug.Stack())})
}

// GetLogDirectory returns the directory where logs are stored
func (s *LoggerService) GetLogDirectory() string {
	return s.logDir
}

// GetTodayLogPath returns the path to today's log file
func (s *LoggerService) GetTodayLogPath() string {
	return filepath.Join(s.logDir, s.now().Format(logDateLayout)+".log")
}

// CleanOldLogs removes daily log files older than daysToKeep
func (s *LoggerService) CleanOldLogs(daysToKeep int) error {
	files, err := os.ReadDir(s.logDir)
	if err != nil {
		return err
	}

	cutoff := s.now().AddDate(0, 0, -daysToKeep)
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".log" {
			continue
		}
		day, err := time.Parse(logDateLayout, strings.TrimSuffix(file.Name(), ".log"))
		if err != nil {
			continue
		}
		if day.Before(cutoff) {
			path := filepath.Join(s.logDir, file.Name())
			s.LogInfo("Deleting old log file", path)
			os.Remove(path)
		}
	}
	return nil
}

// Close closes the log file
func (s *LoggerService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.logFile != nil {
		s.logFile.Close()
		s.logFile = nil
	}
}

// RecoverPanic is a helper to recover from panics in goroutines
func (s *LoggerService) RecoverPanic() {
	if r := recover(); r != nil {
		s.LogPanic(r)
	}
}
