package main

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/corvid-systems/logengine"
	_ "github.com/corvid-systems/logengine/sink"
)

// Hammers ApplyConfig with rapid level changes while a background
// goroutine keeps logging, then forces a handful of full
// Shutdown+Init cycles to exercise the restart path a level-only
// change never takes.
func main() {
	var count atomic.Int64

	cfg := logengine.DefaultConfig()
	cfg.SinkConsoleEnabled = true
	cfg.SinkConsoleColor = false

	logger := logengine.NewLogger(cfg)
	if err := logger.Init(); err != nil {
		fmt.Printf("initial Init error: %v\n", err)
		return
	}

	stop := make(chan struct{})
	go func() {
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			logger.Info("reconfig probe", i)
			count.Add(1)
			time.Sleep(time.Millisecond)
		}
	}()

	levels := []logengine.LogLevel{
		logengine.LevelDebug, logengine.LevelWarn, logengine.LevelError,
		logengine.LevelInfo, logengine.LevelDebug,
	}
	for _, lvl := range levels {
		next := logger.GetConfig()
		next.Level = lvl
		if err := logger.ApplyConfig(next); err != nil {
			fmt.Printf("ApplyConfig error: %v\n", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	// A non-Level field only takes effect after a restart.
	for i := 0; i < 3; i++ {
		next := logger.GetConfig()
		next.WorkerBatchSize = int64(64 * (i + 1))
		if err := logger.Shutdown(time.Second); err != nil {
			fmt.Printf("Shutdown error: %v\n", err)
		}
		if err := logger.ApplyConfig(next); err != nil {
			fmt.Printf("ApplyConfig error: %v\n", err)
		}
		if err := logger.Init(); err != nil {
			fmt.Printf("restart Init error: %v\n", err)
		}
		// Init rebuilds the worker from scratch and re-registers
		// built-in sinks from cfg on every call; nothing to redo here.
		time.Sleep(10 * time.Millisecond)
	}

	close(stop)
	time.Sleep(500 * time.Millisecond)
	fmt.Printf("total logs attempted: %d\n", count.Load())

	if err := logger.Shutdown(time.Second); err != nil {
		fmt.Printf("final shutdown error: %v\n", err)
	}
	stats := logger.Stats()
	fmt.Printf("processed=%d dropped=%d\n", stats.Processed, stats.Dropped)
}
