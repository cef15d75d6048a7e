package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"central-portal/internal/central"
	"central-portal/internal/config"
	"central-portal/internal/domain"
	"central-portal/internal/observability"
	"central-portal/internal/service"
	"central-portal/internal/token"
)

// portal-cli talks to Aruba Central with the portal's own credentials,
// bypassing the session layer. It shares the token cache file with the
// server, so running it warms the cache for both.
func main() {
	var (
		asJSON  = flag.Bool("json", false, "print the normalized device list as JSON")
		refresh = flag.Bool("refresh", false, "force a token exchange before fetching")
		timeout = flag.Duration("timeout", 30*time.Second, "overall deadline")
	)
	flag.Parse()

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "warn"
	}
	observability.InitLogger(logLevel, "text")

	cfg := config.Load()
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		fmt.Fprintln(os.Stderr, "error: Aruba credentials are not configured")
		os.Exit(1)
	}

	cache := token.NewFileCache(cfg.TokenCacheFile)
	tokens := token.NewManager(token.Config{
		TokenURL:     cfg.TokenURL,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		CustomerID:   cfg.CustomerID,
	}, cache)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if *refresh {
		if _, err := tokens.Refresh(ctx, true); err != nil {
			fmt.Fprintf(os.Stderr, "error: token exchange failed: %v\n", err)
			os.Exit(1)
		}
		slog.Info("token refreshed")
	}

	devices := service.NewDeviceService(central.NewClient(cfg.BaseURL, tokens))

	items, err := devices.ListDevices(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(items); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	printSummary(os.Stdout, items)
}

func printSummary(out *os.File, items []domain.Device) {
	byType := map[string]int{}
	upCount := 0
	for _, d := range items {
		byType[d.DeviceType]++
		if d.Status == "Up" {
			upCount++
		}
	}

	types := make([]string, 0, len(byType))
	for t := range byType {
		types = append(types, t)
	}
	sort.Strings(types)

	fmt.Fprintf(out, "%d devices (%d up)\n", len(items), upCount)
	for _, t := range types {
		fmt.Fprintf(out, "  %-8s %d\n", t, byType[t])
	}
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SERIAL\tNAME\tTYPE\tSTATUS\tSITE\tGROUP")
	for _, d := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			d.Serial, d.Name, d.DeviceType, d.Status, d.Site, d.Group)
	}
	w.Flush()
}
