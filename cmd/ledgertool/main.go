package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"os"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"homeautomation-crosspost/pkg/config"
	"homeautomation-crosspost/pkg/crosspostservice"
	"homeautomation-crosspost/pkg/domain"
	"homeautomation-crosspost/pkg/ledger"
	"homeautomation-crosspost/pkg/replication"
)

func main() {
	var (
		configPath = flag.String("config", "", "Config file (default ./config.yml)")
		show       = flag.Bool("show", false, "Print the records of the configured ledger")
		migrate    = flag.Bool("migrate", false, "Copy crawl state from -from to -to")
		from       = flag.String("from", config.BackendFile, "Source backend for -migrate")
		fromPath   = flag.String("from-path", "", "Source file for -migrate when -from=file (default ledger.path)")
		to         = flag.String("to", "", "Destination backend for -migrate")
		mode       = flag.String("mode", string(replication.Merge), "Migration mode: merge or overwrite")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	switch {
	case *show:
		store, closeFn, err := crosspostservice.OpenStore(ctx, cfg.Ledger, nil)
		if err != nil {
			log.Fatalf("Failed to open %s ledger: %v", cfg.Ledger.Backend, err)
		}
		defer closeFn(ctx)

		state, err := store.Load(ctx)
		if errors.Is(err, ledger.ErrNotFound) {
			log.Printf("No crawl state stored yet")
			state, err = domain.NewCrawlState(), nil
		}
		if err != nil {
			log.Fatalf("Failed to load crawl state: %v", err)
		}
		renderState(os.Stdout, state)

	case *migrate:
		if *to == "" || *to == *from {
			log.Fatalf("-to must name a backend different from -from")
		}

		srcCfg := cfg.Ledger
		srcCfg.Backend = *from
		if *fromPath != "" {
			srcCfg.Path = *fromPath
		}
		dstCfg := cfg.Ledger
		dstCfg.Backend = *to

		src, closeSrc, err := crosspostservice.OpenStore(ctx, srcCfg, nil)
		if err != nil {
			log.Fatalf("Failed to open source %s ledger: %v", *from, err)
		}
		defer closeSrc(ctx)
		dst, closeDst, err := crosspostservice.OpenStore(ctx, dstCfg, nil)
		if err != nil {
			log.Fatalf("Failed to open destination %s ledger: %v", *to, err)
		}
		defer closeDst(ctx)

		replicator, err := replication.NewReplicator(replication.Config{Source: src, Destination: dst})
		if err != nil {
			log.Fatalf("Failed to create replicator: %v", err)
		}

		start := time.Now()
		report, err := replicator.Replicate(ctx, replication.Mode(*mode))
		if err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Printf("Done. %d source records, %d inserted, %d total, watermark %.0f, saved=%t. Duration: %s",
			report.SourceRecords, report.Inserted, report.TotalRecords, report.Watermark, report.Saved, time.Since(start))

	default:
		flag.Usage()
		os.Exit(2)
	}
}

// renderState prints the records oldest first, then the watermark.
func renderState(w io.Writer, state domain.CrawlState) {
	records := make([]domain.LedgerRecord, 0, len(state.Records))
	for _, rec := range state.Records {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt != records[j].CreatedAt {
			return records[i].CreatedAt < records[j].CreatedAt
		}
		return records[i].ID < records[j].ID
	})

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Created", "Title", "URL"})
	for _, rec := range records {
		t.AppendRow(table.Row{rec.ID, formatTime(rec.CreatedAt), rec.Title, rec.URL})
	}
	t.AppendFooter(table.Row{"", "Watermark", formatTime(state.Watermark), len(records)})
	t.Render()
}

func formatTime(unix float64) string {
	if unix <= 0 {
		return "-"
	}
	return time.Unix(int64(unix), 0).UTC().Format(time.RFC3339)
}
