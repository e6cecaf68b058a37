package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"evidence-stamp/internal/config"
	"evidence-stamp/internal/infrastructure/logger"
	"evidence-stamp/internal/service"
	"evidence-stamp/updater"
)

// Must match the Windows service name
const serviceName = "EvidenceStamp"

func main() {
	// Define command line flags
	install := flag.Bool("install", false, "Install Windows service")
	uninstall := flag.Bool("uninstall", false, "Uninstall Windows service")
	start := flag.Bool("start", false, "Start the service")
	stop := flag.Bool("stop", false, "Stop the service")
	status := flag.Bool("status", false, "Show the service state")
	debug := flag.Bool("debug", false, "Run in debug/console mode")
	update := flag.Bool("update", false, "Check and apply updates from GitHub")
	version := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *version {
		fmt.Printf("Evidence Stamp Service\n")
		fmt.Printf("Version: %s\n", updater.Version)
		os.Exit(0)
	}

	// Get executable path
	exePath, err := os.Executable()
	if err != nil {
		log.Fatal(err)
	}

	// Change to executable directory for config loading
	if err := os.Chdir(filepath.Dir(exePath)); err != nil {
		log.Printf("Warning: could not change to executable directory: %v", err)
	}

	if *update {
		if err := runUpdate(); err != nil {
			log.Printf("Update failed: %v", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	switch {
	case *install:
		err = service.InstallService(exePath)
		if err != nil {
			log.Fatalf("Failed to install service: %v", err)
		}
		fmt.Println("Service installed successfully")

		// Start the service after installation
		err = service.StartService()
		if err != nil {
			log.Printf("Warning: Failed to start service: %v", err)
			fmt.Println("You may need to start the service manually")
		} else {
			fmt.Println("Service started")
		}

	case *uninstall:
		// Try to stop service first
		_ = service.StopService()

		err = service.UninstallService()
		if err != nil {
			log.Fatalf("Failed to uninstall service: %v", err)
		}
		fmt.Println("Service uninstalled successfully")

	case *start:
		err = service.StartService()
		if err != nil {
			log.Fatalf("Failed to start service: %v", err)
		}
		fmt.Println("Service started")

	case *stop:
		err = service.StopService()
		if err != nil {
			log.Fatalf("Failed to stop service: %v", err)
		}
		fmt.Println("Service stopped")

	case *status:
		state, err := service.ServiceStatus()
		if err != nil {
			log.Fatalf("Failed to query service: %v", err)
		}
		fmt.Printf("%s: %s\n", serviceName, state)

	default:
		isService, err := service.IsWindowsService()
		if err != nil {
			log.Printf("Warning: could not determine if running as service: %v", err)
		}

		app := service.NewApplication()

		if isService {
			service.RunService(false, app)
		} else if *debug {
			service.RunService(true, app)
		} else {
			fmt.Println("Evidence Stamp Service")
			fmt.Printf("Version: %s\n", updater.Version)
			fmt.Println("Running in console mode. Press Ctrl+C to stop.")
			fmt.Println()
			fmt.Println("Available commands:")
			fmt.Println("  -install    Install as Windows service")
			fmt.Println("  -uninstall  Uninstall Windows service")
			fmt.Println("  -start      Start the service")
			fmt.Println("  -stop       Stop the service")
			fmt.Println("  -status     Show the service state")
			fmt.Println("  -debug      Run in debug mode")
			fmt.Println("  -update     Check for updates")
			fmt.Println("  -version    Show version")
			fmt.Println()

			if err := app.Run(); err != nil {
				log.Fatalf("Service failed: %v", err)
			}
		}
	}
}

func runUpdate() error {
	cfg, err := config.NewConfig()
	if err != nil {
		return err
	}
	zl, err := logger.NewLogger(cfg)
	if err != nil {
		return err
	}
	defer zl.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 5*cfg.Update.Timeout)
	defer cancel()

	u := updater.NewUpdater(cfg, zl)
	if err := u.CheckAndUpdate(ctx, serviceName); err != nil {
		zl.Error("Update failed", zap.Error(err))
		return err
	}
	return nil
}
