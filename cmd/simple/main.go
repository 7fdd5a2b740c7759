package main

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/corvid-systems/logengine"
	// sink is imported for its init() side effect of registering the
	// console/file/http SinkFactory implementations with logengine;
	// Init builds them straight from cfg's SinkXxxEnabled flags.
	_ "github.com/corvid-systems/logengine/sink"
)

const configFile = "simple_config.toml"

func main() {
	fmt.Println("--- Simple Logger Example ---")

	cfg := logengine.DefaultConfig()
	cfg.Level = logengine.LevelDebug
	cfg.SinkConsoleEnabled = true
	cfg.SinkFileEnabled = true
	cfg.SinkFilePath = "./simple_logs/log"

	if err := logengine.SaveConfigFile(cfg, configFile); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to save config: %v\n", err)
	} else {
		fmt.Printf("Configuration saved to: %s\n", configFile)
	}

	logger := logengine.NewLogger(cfg)
	if err := logger.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Logger initialized; console and file sinks built from config flags.")

	logger.Debug("This is a debug message.", "user_id", 123)
	logger.Info("Application starting...")
	logger.Warn("Potential issue detected.", "threshold", 0.95)
	logger.Error("An error occurred!", "code", 500)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			logger.Info("Goroutine started", "id", id)
			time.Sleep(time.Duration(50+id*50) * time.Millisecond)
			logger.Info("Goroutine finished", "id", id)
		}(i)
	}
	wg.Wait()
	fmt.Println("Goroutines finished.")

	fmt.Println("Shutting down logger...")
	if err := logger.Shutdown(2 * time.Second); err != nil {
		fmt.Fprintf(os.Stderr, "Logger shutdown error: %v\n", err)
	} else {
		fmt.Println("Logger shutdown complete.")
	}

	fmt.Printf("Check log files in './simple_logs' and the saved config '%s'.\n", configFile)
}
