package main

import (
	"context"
	"log"

	"user-service/cmd/api/app"
	"user-service/cmd/api/server"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("application exited with error: %v", err)
	}
}

func run() error {
	ctx, cancel := server.WithSignal(context.Background())
	defer cancel()

	application, err := app.New()
	if err != nil {
		return err
	}

	return application.Run(ctx)
}
