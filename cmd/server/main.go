package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/sangaman/lightninggem/internal/server"
	"github.com/sangaman/lightninggem/internal/server/config"
)

func main() {

	// optional .env for local development
	_ = godotenv.Load()

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := server.NewApp(cfg)

	if err != nil {
		log.Printf("%v", err)
		return
	}

	if err := app.Run(ctx); err != nil {
		log.Printf("%v", err)
	}
}
