// Battleship Server - Main Entry Point
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"battleship-game/internal/server"
	"battleship-game/pkg/logger"
)

var (
	version  = "1.0.0"
	port     = flag.String("port", "8889", "Server port")
	host     = flag.String("host", "localhost", "Server host")
	logLevel = flag.String("log-level", "INFO", "Log level (DEBUG, INFO, WARN, ERROR)")
	logFile  = flag.String("log-file", "", "Log file path (optional)")
	help     = flag.Bool("help", false, "Show help information")
)

func main() {
	flag.Parse()

	if *help {
		showHelp()
		return
	}

	if err := initLogging(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}

	logger.Server.Info("Starting Battleship Server v%s", version)

	address := fmt.Sprintf("%s:%s", *host, *port)
	gameServer := server.NewServer(address)

	if err := gameServer.Start(); err != nil {
		logger.Server.Error("Server failed to start: %v", err)
		os.Exit(1)
	}
	logger.Server.Info("Listening on %s", gameServer.Addr())

	// Block until interrupted
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	logger.Server.Info("Received shutdown signal, stopping server...")
	gameServer.Stop()
}

// initLogging sets up the logging system
func initLogging() error {
	var level logger.LogLevel
	switch *logLevel {
	case "DEBUG":
		level = logger.DEBUG
	case "INFO":
		level = logger.INFO
	case "WARN":
		level = logger.WARN
	case "ERROR":
		level = logger.ERROR
	default:
		level = logger.INFO
	}

	logger.SetGlobalLogLevel(level)

	if *logFile != "" {
		if err := logger.Server.SetFile(*logFile); err != nil {
			return fmt.Errorf("failed to set log file: %w", err)
		}
		logger.Server.Info("Logging to file: %s", *logFile)
	} else {
		if err := logger.InitializeFileLogging("./logs"); err != nil {
			// Don't fail if we can't create log directory, just log to console
			logger.Server.Warn("Could not initialize file logging: %v", err)
		}
	}

	return nil
}

// showHelp displays help information
func showHelp() {
	fmt.Printf(`Battleship Server v%s

USAGE:
    %s [OPTIONS]

OPTIONS:
    -port string         Server port (default "8889")
    -host string         Server host (default "localhost")
    -log-level string    Set log level (DEBUG, INFO, WARN, ERROR) (default "INFO")
    -log-file string     Set log file path (optional)
    -help               Show this help message

EXAMPLES:
    # Start server with default settings
    %s

    # Start on all interfaces
    %s -host 0.0.0.0 -port 8889

    # Start with debug logging
    %s -log-level DEBUG

SERVER FEATURES:
    - TCP socket server for client connections
    - FIFO matchmaking for two-player games
    - Per-game turn and board state management
    - In-game chat relay
    - Graceful shutdown handling
`, version, os.Args[0], os.Args[0], os.Args[0], os.Args[0])
}
