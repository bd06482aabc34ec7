package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/markdave123-py/Docsage/internal/app"
	"github.com/markdave123-py/Docsage/internal/config"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		<-c
		cancel()
	}()

	cfg := config.LoadConfig()
	workerApp, err := app.NewWorkerApp(ctx, cfg)
	if err != nil {
		log.Fatalf("worker startup failed: %v", err)
	}
	defer workerApp.Close()

	if err := workerApp.Worker.Start(ctx); err != nil {
		log.Fatalf("worker consume failed: %v", err)
	}

	log.Println("Docsage worker is running; consuming ingestion jobs.")
	<-ctx.Done()
	log.Println("shutting down...")
}
