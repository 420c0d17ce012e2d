package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// SessionLogger writes published messages to a file that is replaced once it
// is older than maxDuration.
type SessionLogger struct {
	outputDir   string
	file        *os.File
	maxDuration time.Duration
	startTime   time.Time
	now         func() time.Time
	logger      zerolog.Logger
	mu          sync.Mutex
	closed      bool
}

func NewSessionLogger(outputDir string, maxDuration time.Duration, logger zerolog.Logger) (*SessionLogger, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log output directory: %w", err)
	}

	sl := &SessionLogger{
		outputDir:   outputDir,
		maxDuration: maxDuration,
		now:         time.Now,
		logger:      logger,
	}

	if err := sl.rotateFile(); err != nil {
		return nil, err
	}

	return sl, nil
}

func (sl *SessionLogger) rotateFile() error {
	if sl.file != nil {
		sl.file.Close()
	}

	sl.startTime = sl.now()
	path := filepath.Join(sl.outputDir, sl.generateFilename())

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create session log file: %w", err)
	}

	sl.file = file
	sl.logger.Info().Str("file", path).Msg("Created new session log file")

	return nil
}

func (sl *SessionLogger) generateFilename() string {
	return fmt.Sprintf("robot_simulator_%s.log", sl.startTime.Format("20060102_150405.000"))
}

func (sl *SessionLogger) Log(message string) error {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	if sl.closed {
		return fmt.Errorf("session logger has been closed")
	}

	now := sl.now()
	if now.Sub(sl.startTime) > sl.maxDuration {
		if err := sl.rotateFile(); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintf(sl.file, "[%s] %s\n", now.Format("2006-01-02 15:04:05.000"), message)
	return err
}

func (sl *SessionLogger) Close() error {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	if sl.closed {
		return nil
	}
	sl.closed = true

	if sl.file != nil {
		return sl.file.Close()
	}
	return nil
}
