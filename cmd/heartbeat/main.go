package main

import (
	"fmt"
	"os"
	"time"

	"github.com/corvid-systems/logengine"
	_ "github.com/corvid-systems/logengine/sink"
)

// Cycles the heartbeat reporter on and off across restarts (it is not
// a Level field, so it only takes effect after Shutdown+Init) and
// prints the engine's own counters between cycles.
func main() {
	if err := os.MkdirAll("./logs", 0755); err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logs directory: %v\n", err)
		os.Exit(1)
	}

	intervals := []struct {
		seconds     int64
		description string
	}{
		{0, "heartbeat disabled"},
		{1, "heartbeat every 1s"},
		{3, "heartbeat every 3s"},
		{1, "heartbeat every 1s (reducing from 3)"},
		{0, "heartbeat disabled (final)"},
	}

	cfg := logengine.DefaultConfig()
	cfg.Level = logengine.LevelDebug
	cfg.InternalDiagnostics = true
	cfg.SinkFileEnabled = true
	cfg.SinkFilePath = "./logs/heartbeat"

	logger := logengine.NewLogger(cfg)

	for _, cycle := range intervals {
		next := logger.GetConfig()
		next.HeartbeatIntervalS = cycle.seconds
		if err := logger.ApplyConfig(next); err != nil {
			fmt.Fprintf(os.Stderr, "ApplyConfig error: %v\n", err)
			os.Exit(1)
		}
		if err := logger.Init(); err != nil {
			fmt.Fprintf(os.Stderr, "Init error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("\n--- %s ---\n", cycle.description)
		logger.Info("heartbeat cycle started", "interval_s", cycle.seconds)

		for j := 0; j < 10; j++ {
			logger.Debug("debug probe", "iteration", j)
			logger.Info("info probe", "iteration", j)
			logger.Warn("warn probe", "iteration", j)
			logger.Error("error probe", "iteration", j)
			time.Sleep(100 * time.Millisecond)
		}

		waitTime := time.Duration(cycle.seconds+1) * time.Second
		if cycle.seconds == 0 {
			waitTime = time.Second
		}
		fmt.Printf("waiting %v for heartbeats to surface...\n", waitTime)
		time.Sleep(waitTime)

		stats := logger.Stats()
		fmt.Printf("processed=%d dropped=%d rotations=%d sweeps=%d current=%s\n",
			stats.Processed, stats.Dropped, stats.Rotations, stats.RetentionSweeps, stats.CurrentFilePath)

		if err := logger.Shutdown(2 * time.Second); err != nil {
			fmt.Fprintf(os.Stderr, "warning: shutdown error: %v\n", err)
		}
	}

	fmt.Println("\nheartbeat cycling test completed")
	fmt.Println("check the logs directory for generated log files")
}
