package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"slds/internal/collector"
	"slds/internal/config"

	"github.com/robfig/cron/v3"
)

func main() {
	if path := config.LoadEnv(".env", "../.env", "../../.env"); path != "" {
		fmt.Printf("Loaded .env from: %s\n", path)
	}

	configPath := flag.String("config", "config.yaml", "Path to the YAML configuration")
	leagueName := flag.String("league", "", "League key (e.g. SLO)")
	region := flag.String("region", "", "Platform override for match lookups (e.g. EUW1)")
	connector := flag.String("connector", "fs", "Storage backend: fs or db")
	download := flag.Bool("download", false, "Download games missing from the raw store")
	export := flag.Bool("export", false, "Synchronize the league dataset")
	force := flag.Bool("force-update", false, "Rebuild the dataset from every reference game")
	csvOut := flag.Bool("csv", false, "Write the dataset as CSV")
	xlsxOut := flag.Bool("xlsx", false, "Write the dataset as XLSX")
	updateStatic := flag.Bool("update-static-data", false, "Download the latest Data Dragon reference data")
	workers := flag.Int("workers", 0, "Concurrent downloads (default from config)")
	schedule := flag.String("schedule", "", "Cron spec to repeat the run until interrupted (e.g. '@every 30m')")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}

	if *leagueName == "" {
		fmt.Println("Usage:")
		fmt.Println("  slds -league=SLO [-download] [-export] [-force-update] [-csv] [-xlsx]")
		fmt.Println("  slds -league=SLO -schedule='@every 1h'")
		fmt.Println()
		fmt.Printf("Configured leagues: %s\n", strings.Join(cfg.LeagueKeys(), ", "))
		os.Exit(1)
	}
	league, err := cfg.League(*leagueName)
	if errors.Is(err, config.ErrUnknownLeague) {
		fmt.Printf("Unknown league %q.", *leagueName)
		if suggestions := cfg.Suggest(*leagueName); len(suggestions) > 0 {
			fmt.Printf(" Did you mean: %s?", strings.Join(suggestions, ", "))
		}
		fmt.Printf("\nConfigured leagues: %s\n", strings.Join(cfg.LeagueKeys(), ", "))
		os.Exit(1)
	}
	league = league.WithRegion(*region)

	if *connector != "fs" && *connector != "db" {
		log.Fatalf("Unknown connector %q, expected fs or db", *connector)
	}

	// neither step selected means a full run
	if !*download && !*export && !*updateStatic {
		*download, *export = true, true
	}

	r := &runner{
		cfg:          cfg,
		league:       league,
		connector:    *connector,
		download:     *download,
		export:       *export,
		force:        *force,
		csv:          *csvOut,
		xlsx:         *xlsxOut,
		updateStatic: *updateStatic,
	}

	ctx, stop := collector.SignalContext(context.Background(), func() {
		fmt.Println("\n[Shutdown] Gracefully shutting down...")
	})

	if *schedule == "" {
		err := r.run(ctx)
		stop()
		if err != nil {
			log.Printf("[Main] %s: %v", league.Key, err)
			os.Exit(1)
		}
		return
	}

	if err := runScheduled(ctx, *schedule, r); err != nil {
		stop()
		log.Fatalf("[Main] %v", err)
	}
	stop()
}

// runScheduled runs once immediately, then on every cron tick until ctx is
// cancelled. Failed runs are logged and retried on the next tick.
func runScheduled(ctx context.Context, spec string, r *runner) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	job := func() {
		if ctx.Err() != nil {
			return
		}
		if err := r.run(ctx); err != nil {
			log.Printf("[Schedule] %s run failed: %v", r.league.Key, err)
		}
	}
	if _, err := c.AddFunc(spec, job); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	job()
	c.Start()
	fmt.Printf("[Schedule] %s: next run at %s\n", r.league.Key, c.Entries()[0].Next.Format("2006-01-02 15:04:05"))

	<-ctx.Done()
	<-c.Stop().Done()
	fmt.Println("[Schedule] Stopped")
	return nil
}
