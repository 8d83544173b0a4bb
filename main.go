package main

import (
	"os"

	"github.com/alecthomas/kingpin"

	"github.com/hevy-insights/hevy-gateway/commands"
	"github.com/hevy-insights/hevy-gateway/config"
)

var (
	app = kingpin.New("hevy-gateway", "A relay between the Hevy Insights web client and the Hevy API.")

	serveCommand = app.Command("serve", "Run the gateway server.").Default()
	configPath   = app.Flag("config", "Path to the configuration file.").
			Default(config.DefaultConfigPath).
			String()
)

func main() {
	switch kingpin.MustParse(app.Parse(os.Args[1:])) {
	case serveCommand.FullCommand():
		commands.Serve(*configPath)
	}
}
