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

	configPath := flag.String("config", "./store.yml", "path to the store config file")
	flag.Parse()

	_ = godotenv.Load()

	conf := config.MustLoadStore(*configPath)
	log := logger.New(os.Stdout, conf.LogLevel)

	if err := app.RunStore(log, conf); err != nil {
		panic(fmt.Errorf("store run failed: %w", err))
	}
}
