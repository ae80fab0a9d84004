// Package main RAG Console API Server
//
//	@title			RAG Console API
//	@version		1.0
//	@description	Stage orchestration and job queue for the RAG document pipeline
//
//	@contact.name	API Support
//
//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html
//
//	@host		localhost:8080
//	@BasePath	/
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "rag-console/docs" // This imports the docs package to initialize swagger
	"rag-console/internal/config"
	"rag-console/internal/server"
)

func main() {
	// CONSOLE_CONFIG overrides the config.yaml location
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Println("Starting RAG Console...")
	srv, err := server.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
	if err := srv.Run(ctx); err != nil {
		log.Fatalf("Server stopped with error: %v", err)
	}
	log.Println("RAG Console stopped.")
}
