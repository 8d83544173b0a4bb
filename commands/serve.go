package commands

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hevy-insights/hevy-gateway/api"
	"github.com/hevy-insights/hevy-gateway/config"
)

// Serve runs the gateway until interrupted, reloading the configuration on
// file change or SIGHUP.
func Serve(configPath string) {
	var cfg *config.Config
	configWatcher := config.Watch(configPath)

	select {
	case cfg = <-configWatcher.NewConfig:
		break

	case err := <-configWatcher.Errors:
		log.Fatalf("Unable to load configuration file %s: %s", configPath, err.Error())
	}

	api, err := api.New(cfg)
	if err != nil {
		log.Fatalf("Could not create API: %s", err.Error())
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	terminate := make(chan os.Signal, 1)
	signal.Notify(terminate, syscall.SIGTERM)

	for {
		var newCfg *config.Config = nil
		shouldExit := false
		log.Println("Starting hevy-gateway server on port", cfg.Port)
		log.Println("Quit the server with CONTROL-C.")

		server := api.Serve()

		select {
		case newCfg = <-configWatcher.NewConfig:
			log.Println("Detected configuration change, reloading...")

		case err := <-configWatcher.Errors:
			log.Fatal("Unexpected error: ", err)

		case <-hup:
			log.Println("Received SIGHUP, reloading configuration...")

			var err error
			if newCfg, err = configWatcher.ForceReload(); err != nil {
				log.Fatal("Unexpected error: ", err)
			}

		case <-interrupt:
			shouldExit = true
			signal.Reset(os.Interrupt)
			log.Println("Received SIGINT, shutting down...")
			log.Println("CONTROL-C again to force quit.")

		case <-terminate:
			shouldExit = true
			log.Println("Received SIGTERM, shutting down...")
		}

		if err = api.Shutdown(server); err != nil {
			log.Fatalf("An error occurred while shutting down the server: %s", err.Error())
		}

		log.Println("Server shut down.")

		if shouldExit {
			break
		}

		if newCfg != nil {
			if err = api.SetConfig(newCfg); err != nil {
				log.Printf("Failed to reload configuration: %s\n", err.Error())
			} else {
				cfg = newCfg
				log.Println("Configuration reloaded.")
			}
		}
	}
}
