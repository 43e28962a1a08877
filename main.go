// Application entry point: loads configuration, initializes logging, and
// starts the relay server.
package main

import (
	"fmt"

	"github.com/chatrelay/server/internal/api"
	"github.com/chatrelay/server/internal/config"
	"github.com/chatrelay/server/internal/logger"
)

const configFile = "chatrelay.json"

func main() {
	cfg, err := config.Load(configFile)
	if err != nil {
		fmt.Printf("Error loading config: %v, using defaults\n", err)
	}

	logger.InitLogger(cfg.Log)
	serverLogger := logger.NewLogger("server")
	serverLogger.WithFields(map[string]interface{}{
		"addr":        cfg.Addr,
		"level":       cfg.Log.Level,
		"log_to_file": cfg.Log.LogToFile,
	}).Info("Configuration loaded")

	api.StartServer(cfg, serverLogger)
}
