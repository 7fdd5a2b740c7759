package main

import (
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/corvid-systems/logengine"
	_ "github.com/corvid-systems/logengine/sink"
)

const (
	totalBursts    = 100
	logsPerBurst   = 500
	maxMessageSize = 10000
	numWorkers     = 500
)

var levels = []logengine.LogLevel{
	logengine.LevelDebug,
	logengine.LevelInfo,
	logengine.LevelWarn,
	logengine.LevelError,
}

var logger *logengine.Logger

func generateRandomMessage(size int) string {
	const chars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789 "
	var sb strings.Builder
	sb.Grow(size)
	for i := 0; i < size; i++ {
		sb.WriteByte(chars[rand.Intn(len(chars))])
	}
	return sb.String()
}

func logBurst(burstID int) {
	for i := 0; i < logsPerBurst; i++ {
		level := levels[rand.Intn(len(levels))]
		msgSize := rand.Intn(maxMessageSize) + 10
		msg := generateRandomMessage(msgSize)
		args := []any{
			msg,
			"wkr", burstID % numWorkers,
			"bst", burstID,
			"seq", i,
			"rnd", rand.Int63(),
		}
		switch level {
		case logengine.LevelDebug:
			logger.Debug(args...)
		case logengine.LevelInfo:
			logger.Info(args...)
		case logengine.LevelWarn:
			logger.Warn(args...)
		case logengine.LevelError:
			logger.Error(args...)
		}
	}
}

func worker(burstChan chan int, wg *sync.WaitGroup, completedBursts *atomic.Int64) {
	defer wg.Done()
	for burstID := range burstChan {
		logBurst(burstID)
		completed := completedBursts.Add(1)
		if completed%10 == 0 || completed == totalBursts {
			fmt.Printf("\rProgress: %d/%d bursts completed", completed, totalBursts)
		}
	}
}

func main() {
	fmt.Println("--- Logger Stress Test ---")

	logsDir := "./logs"
	_ = os.RemoveAll(logsDir)

	cfg := logengine.DefaultConfig()
	cfg.Level = logengine.LevelDebug
	cfg.QueueCapacity = 1 << 15
	cfg.QueueFullPolicy = "DROP"
	cfg.SinkConsoleEnabled = false
	cfg.SinkFileEnabled = true
	cfg.SinkFilePath = logsDir + "/log"
	cfg.SinkFileRotatePolicy = "SIZE"
	cfg.SinkFileMaxSizeMB = 1
	cfg.SinkFileMaxFiles = 20
	cfg.RetentionPeriodHrs = 0.0028 // ~10 seconds, forces aggressive cleanup during the run

	logger = logengine.NewLogger(cfg)
	if err := logger.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Logger initialized. Logs will be written to: %s\n", logsDir)

	fmt.Printf("Starting stress test: %d workers, %d bursts, %d logs/burst.\n",
		numWorkers, totalBursts, logsPerBurst)
	fmt.Println("Watch Stats().Dropped for queue pressure and the log directory for rotation.")
	fmt.Println("Press Ctrl+C to stop early.")

	burstChan := make(chan int, numWorkers)
	var wg sync.WaitGroup
	completedBursts := atomic.Int64{}
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	stopChan := make(chan struct{})

	go func() {
		<-sigChan
		fmt.Println("\n[Signal Received] Stopping burst generation...")
		close(stopChan)
	}()

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go worker(burstChan, &wg, &completedBursts)
	}

	startTime := time.Now()
loop:
	for i := 1; i <= totalBursts; i++ {
		select {
		case burstChan <- i:
		case <-stopChan:
			fmt.Println("[Signal Received] Halting burst submission.")
			break loop
		}
	}
	close(burstChan)

	fmt.Println("\nWaiting for workers to finish...")
	wg.Wait()
	duration := time.Since(startTime)
	finalCompleted := completedBursts.Load()

	fmt.Printf("\n--- Test Finished ---")
	fmt.Printf("\nCompleted %d/%d bursts in %v\n", finalCompleted, totalBursts, duration.Round(time.Millisecond))
	if finalCompleted > 0 && duration.Seconds() > 0 {
		logsPerSec := float64(finalCompleted*logsPerBurst) / duration.Seconds()
		fmt.Printf("Approximate Logs/sec: %.2f\n", logsPerSec)
	}
	stats := logger.Stats()
	fmt.Printf("Processed: %d, Dropped: %d, Rotations: %d, RetentionSweeps: %d\n",
		stats.Processed, stats.Dropped, stats.Rotations, stats.RetentionSweeps)

	fmt.Println("Shutting down logger (allowing up to 10s)...")
	if err := logger.Shutdown(10 * time.Second); err != nil {
		fmt.Fprintf(os.Stderr, "Logger shutdown error: %v\n", err)
	} else {
		fmt.Println("Logger shutdown complete.")
	}

	fmt.Printf("Check log files in '%s'.\n", logsDir)
}
