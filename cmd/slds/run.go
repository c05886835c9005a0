package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"slds/internal/collector"
	"slds/internal/config"
	"slds/internal/convert"
	"slds/internal/dataset"
	"slds/internal/db"
	"slds/internal/discord"
	"slds/internal/ids"
	"slds/internal/reference"
	"slds/internal/riot"
	"slds/internal/storage"
	"slds/internal/syncer"
)

// runner executes the selected steps for one league
type runner struct {
	cfg    *config.Config
	league *config.League

	connector    string
	download     bool
	export       bool
	force        bool
	csv          bool
	xlsx         bool
	updateStatic bool
}

type stores struct {
	records  storage.RecordStore
	datasets dataset.Store
	// files receives a file export when the dataset itself lives in a database
	files dataset.Store
	close func()
}

func (r *runner) run(ctx context.Context) error {
	if r.updateStatic {
		version, err := riot.NewStaticClient("").SaveStaticData(ctx, r.cfg.StaticDataDir)
		if err != nil {
			return fmt.Errorf("failed to update static data: %w", err)
		}
		fmt.Printf("Static data updated to patch %s in %s\n", version, r.cfg.StaticDataDir)
	}
	if !r.download && !r.export {
		return nil
	}

	s, err := r.openStores(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	var notifier *discord.WebhookClient
	if r.cfg.WebhookURL != "" {
		notifier = discord.NewWebhookClient(r.cfg.WebhookURL)
	}

	if r.download {
		if err := r.acquire(ctx, s.records, notifier); err != nil {
			return err
		}
	}
	if r.export {
		return r.sync(ctx, s, notifier)
	}
	return nil
}

func (r *runner) openStores(ctx context.Context) (*stores, error) {
	formats := dataset.Formats{CSV: r.csv, XLSX: r.xlsx}
	files := dataset.NewFileStore(r.league.DatasetCSV, r.league.DatasetXLSX, formats)

	if r.connector == "db" {
		conn, err := db.Open(ctx, r.cfg, r.league)
		if err != nil {
			return nil, fmt.Errorf("failed to open database connector: %w", err)
		}
		s := &stores{records: conn.Records, datasets: conn.Datasets, close: conn.Close}
		if r.csv || r.xlsx {
			s.files = files
		}
		return s, nil
	}

	loc, err := r.league.DateLocation()
	if err != nil {
		return nil, err
	}
	records, err := storage.NewFileStore(r.league.GamesDir, r.league.Official, storage.WithLocation(loc))
	if err != nil {
		return nil, err
	}
	return &stores{records: records, datasets: files, close: func() {}}, nil
}

func (r *runner) acquire(ctx context.Context, records storage.RecordStore, notifier *discord.WebhookClient) error {
	apiKey := r.cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("RIOT_API_KEY")
	}

	validator := riot.NewKeyValidator(riot.WithPlatform(r.league.Region))
	if err := validator.Validate(ctx, apiKey); err != nil {
		if errors.Is(err, riot.ErrInvalidKey) {
			return fmt.Errorf("riot API key rejected, generate a new one at developer.riotgames.com")
		}
		return fmt.Errorf("failed to validate riot API key: %w", err)
	}
	client, err := riot.NewClient(apiKey)
	if err != nil {
		return err
	}

	wanted, err := r.referenceIDs(ctx, client)
	if err != nil {
		return err
	}

	acq := collector.NewAcquirer(client, records, collector.AcquirerConfig{
		Workers: r.cfg.Workers,
		Rate:    r.cfg.FetchRate,
	})
	res, err := acq.Acquire(ctx, r.league, wanted)
	if res != nil && notifier != nil && !res.UpToDate {
		if nerr := notifier.NotifyDownload(context.WithoutCancel(ctx), r.league.Key, res); nerr != nil {
			log.Printf("[Main] Failed to send download notification: %v", nerr)
		}
	}
	if err != nil {
		return fmt.Errorf("download interrupted: %w", err)
	}
	return nil
}

func (r *runner) referenceIDs(ctx context.Context, lister collector.MatchLister) ([]ids.GameID, error) {
	ref, err := reference.Load(r.league.ReferenceFile, r.league)
	if err != nil {
		return nil, err
	}
	if r.league.IDSource != config.SourceAccounts {
		return ref.IDs(), nil
	}
	accounts := ref.Accounts(r.league.AccountColumn)
	fmt.Printf("Crawling recent games of %d accounts...\n", len(accounts))
	return collector.CrawlAccounts(ctx, lister, r.league, accounts)
}

func (r *runner) sync(ctx context.Context, s *stores, notifier *discord.WebhookClient) error {
	var opts []syncer.Option
	if notifier != nil {
		opts = append(opts, syncer.WithNotifier(notifier))
	}
	conv := convert.ParticipantConverter{}
	if champions, err := riot.LoadChampionRegistry(r.cfg.StaticDataDir); err == nil {
		conv.Champions = champions
		log.Printf("[Main] Loaded %d champion names", champions.Len())
	} else {
		log.Printf("[Main] Champion names unavailable, run with -update-static-data: %v", err)
	}
	sy := syncer.New(r.league, s.records, s.datasets, conv, opts...)

	out, err := sy.Sync(ctx, r.force)
	if err != nil {
		return err
	}
	if s.files != nil && out.Table != nil {
		if err := s.files.Save(ctx, out.Table); err != nil {
			return fmt.Errorf("failed to export dataset files: %w", err)
		}
	}

	switch out.Status {
	case syncer.StatusNoChange:
		fmt.Printf("%s: dataset up to date (%d rows)\n", out.League, out.Rows)
	case syncer.StatusAppended:
		fmt.Printf("%s: appended %d rows for %d new games (%d rows total)\n", out.League, out.Added, len(out.NewIDs), out.Rows)
	case syncer.StatusRebuilt:
		fmt.Printf("%s: dataset rebuilt with %d rows\n", out.League, out.Rows)
	}
	if len(out.Missing) > 0 {
		fmt.Printf("%s: %d games have no raw data yet, run with -download\n", out.League, len(out.Missing))
	}
	return nil
}
