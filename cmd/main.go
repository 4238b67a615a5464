package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/earthmover/internal/app"
	"github.com/earthmover/internal/repl"
)

func main() {
	configDir := flag.String("config", "./configs", "directory containing config.toml")
	message := flag.String("message", "", "run a single chat turn and exit")
	site := flag.String("site", "", "site override (ALPHA, BETA, GAMMA, DELTA)")
	noTranscript := flag.Bool("no-transcript", false, "disable session transcript recording")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.NewApplication(*configDir)
	if err != nil {
		log.Fatalf("failed to create application: %v", err)
	}

	if err := application.Initialize(ctx); err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := application.Shutdown(shutdownCtx); err != nil {
			log.Printf("[main] shutdown: %v", err)
		}
	}()

	// One-shot mode: run a single turn and exit.
	if *message != "" {
		result, err := application.Process(ctx, *message, strings.ToUpper(*site))
		if err != nil {
			if ctx.Err() != nil {
				log.Printf("[main] interrupted: %v", ctx.Err())
				return
			}
			log.Fatalf("failed to process message: %v", err)
		}
		fmt.Println(result.Response)
		if len(result.Sources) > 0 {
			fmt.Printf("\nSources: %s\n", strings.Join(result.Sources, ", "))
		}
		return
	}

	opts := []repl.Option{repl.WithApplication(application)}
	if *noTranscript {
		opts = append(opts, repl.WithTranscriptDisabled())
	}

	r, err := repl.NewREPL(ctx, opts...)
	if err != nil {
		log.Fatalf("failed to create repl: %v", err)
	}
	defer r.Close()

	if *site != "" {
		application.SetSite(strings.ToUpper(*site))
		log.Printf("[main] active site: %s", application.Site())
	}

	if err := r.Run(); err != nil {
		log.Fatalf("repl failed: %v", err)
	}
}
