package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	natsadapter "geoscout/internal/adapters/nats"
	"geoscout/internal/adapters/nominatim"
	"geoscout/internal/adapters/overpass"
	"geoscout/internal/core/usecases"
	"geoscout/internal/pkg/config"
	"geoscout/internal/pkg/logging"
)

func main() {
	watch := flag.Bool("watch", false, "stream search events from a running API instead of searching")
	flag.Parse()

	cfg, err := config.Load("geoscout-search")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// Keep stdout clean for the result JSON
	logging.Setup("warn", "text")

	if *watch {
		watchEvents(cfg)
		return
	}

	raw := strings.Join(flag.Args(), " ")
	if strings.TrimSpace(raw) == "" {
		fmt.Fprintln(os.Stderr, `usage: search [-watch] "<topics> in <place>"`)
		os.Exit(2)
	}

	geocoder := nominatim.New(
		cfg.Geocoder.Endpoint,
		cfg.Geocoder.UserAgent,
		time.Duration(cfg.Geocoder.TimeoutSeconds)*time.Second,
	)
	features := overpass.New(cfg.Geodata.Endpoint, cfg.Geodata.MaxParallel, cfg.Geodata.TimeoutSeconds)
	svc := usecases.NewSearchService(geocoder, features, nil, nil)

	result, err := svc.Search(context.Background(), raw)
	if err != nil {
		fmt.Fprintln(os.Stderr, "search failed:", err)
		os.Exit(1)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatalf("encode result: %v", err)
	}
	fmt.Println(string(out))
}

// watchEvents prints search lifecycle events from the broker as JSON
// lines until interrupted.
func watchEvents(cfg *config.Config) {
	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer sub.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = sub.SubscribeSearchEvents(ctx, func(ctx context.Context, event *natsadapter.SearchEvent) error {
		line, err := json.Marshal(event)
		if err != nil {
			return err
		}
		fmt.Println(string(line))
		return nil
	})
	if err != nil {
		log.Fatalf("subscribe: %v", err)
	}

	fmt.Fprintln(os.Stderr, "watching search events, ctrl-c to stop")
	<-ctx.Done()
}
