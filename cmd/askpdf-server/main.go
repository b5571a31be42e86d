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
	"time"

	cfgPkg "github.com/xhad/askpdf/pkg/config"
	"github.com/xhad/askpdf/pkg/session"
	"github.com/xhad/askpdf/server"
)

func main() {
	var configPath, port string
	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.StringVar(&port, "port", "", "Port to listen on")
	flag.Parse()

	cfg, err := cfgPkg.LoadConfig(configPath)
	if err != nil {
		log.Fatal(err)
	}
	if port != "" {
		cfg.Server.Port = port
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			log.Printf("config: %s: %s", e.Field, e.Message)
		}
		log.Fatal("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessions, cleanup, err := session.Build(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer cleanup()
	go sessions.Sweep(ctx, time.Minute)

	srv := &http.Server{
		Addr: ":" + cfg.Server.Port,
		Handler: server.New(server.Config{
			MaxUploadBytes: int64(cfg.PDF.MaxUploadMB) << 20,
			SampleRate:     cfg.Speech.Recorder.SampleRate,
		}, sessions).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("Starting server on port %s", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
