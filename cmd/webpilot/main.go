package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/webpilot-ai/webpilot/internal/app"
	"github.com/webpilot-ai/webpilot/internal/cli"
	"github.com/webpilot-ai/webpilot/internal/config"
)

func main() {
	taskFlag := flag.String("task", "", "run a single task from the command line instead of serving")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	built, err := app.Build(context.Background(), cfg)
	if err != nil {
		log.Fatalf("build error: %v", err)
	}
	defer func() {
		if err := built.Cleanup(); err != nil {
			log.Printf("cleanup error: %v", err)
		}
	}()

	if *taskFlag != "" {
		runOnce(built, *taskFlag)
		return
	}
	serve(cfg, built)
}

// runOnce executes one task in-process and exits; used for quick local runs
// without the HTTP surface.
func runOnce(built *app.BuildResult, instructions string) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	built.Manager.Start(ctx)
	if err := cli.Run(ctx, built.Manager, instructions, os.Stdin, os.Stdout); err != nil {
		log.Fatalf("task run failed: %v", err)
	}
}

func serve(cfg config.Config, built *app.BuildResult) {
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: built.API.Router(),
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	built.Manager.Start(runCtx)

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
