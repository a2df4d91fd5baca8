package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	app "github.com/rocketscienceinc/blockarena-backend/internal"
	"github.com/rocketscienceinc/blockarena-backend/internal/config"
	"github.com/rocketscienceinc/blockarena-backend/internal/pkg/logger"
)

func main() {
	defer func() {
		if err := recover(); err != nil {
			fmt.Fprintf(os.Stderr, "recovered from panic: %v\n", err)
			os.Exit(1)
		}
	}()

	configPath := flag.String("config", "./lobby.yml", "path to the lobby config file")
	flag.Parse()

	// a missing .env is fine, the environment may already be set
	_ = godotenv.Load()

	conf := config.MustLoadLobby(*configPath)
	log := logger.New(os.Stdout, conf.LogLevel)

	if err := app.RunLobby(log, conf); err != nil {
		panic(fmt.Errorf("lobby run failed: %w", err))
	}
}
