package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/semaphore"

	"tavola/internal/adapters/observability"
	"tavola/internal/adapters/sheets"
	"tavola/internal/app"
	"tavola/internal/domain"
	"tavola/internal/shared"
)

type options struct {
	urls    []string
	asJSON  bool
	workers int
	envFile string
	timeout time.Duration
}

type report struct {
	URL   string            `json:"url"`
	Stats domain.MapStats   `json:"stats"`
	Items []domain.MenuItem `json:"items,omitempty"`
	Error string            `json:"error,omitempty"`
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	o := &options{}
	cmd := &cobra.Command{
		Use:   "menucheck",
		Short: "Fetch, parse and map the published menu sheet and report what the site would show",
		Long: `menucheck runs the same pipeline as GET /api/menu against one or more published
sheet URLs (default MENU_CSV_URL) so a sheet edit can be checked before it goes live.
It exits non-zero when any sheet cannot be fetched or has missing columns.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), o)
		},
	}
	f := cmd.Flags()
	f.StringSliceVar(&o.urls, "url", nil, "published CSV URL (repeatable; default MENU_CSV_URL)")
	f.BoolVar(&o.asJSON, "json", false, "print mapped items as JSON")
	f.IntVar(&o.workers, "workers", 4, "sheets checked in parallel")
	f.StringVar(&o.envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	f.DurationVar(&o.timeout, "timeout", 30*time.Second, "overall deadline")
	return cmd
}

func run(ctx context.Context, o *options) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := godotenv.Load(o.envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", o.envFile, err)
	}
	cfg := shared.Load()
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	urls := o.urls
	if len(urls) == 0 && cfg.MenuCSVURL != "" {
		urls = []string{cfg.MenuCSVURL}
	}
	if len(urls) == 0 {
		return errors.New("no sheet URL: pass --url or set MENU_CSV_URL")
	}
	if o.workers <= 0 {
		o.workers = 1
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	reports, err := checkAll(ctx, urls, o.workers, func(ctx context.Context, u string) report {
		return check(ctx, u, cfg.MenuFetchRPS)
	})
	if err != nil {
		return err
	}

	failed := 0
	for _, r := range reports {
		ev := log.Info()
		if r.Error != "" {
			failed++
			ev = log.Error().Str("error", r.Error)
		}
		ev.Str("url", r.URL).
			Int("rows", r.Stats.Rows).
			Int("emitted", r.Stats.Emitted).
			Int("hidden", r.Stats.Hidden).
			Int("invalid", r.Stats.Invalid).
			Int("skipped", r.Stats.Skipped).
			Msg("sheet checked")
	}

	if o.asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(reports); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d sheets failed", failed, len(urls))
	}
	return nil
}

// checkAll runs fn for every url with at most workers in flight. On a context
// error it still waits for the checks already started before returning.
func checkAll(ctx context.Context, urls []string, workers int, fn func(context.Context, string) report) ([]report, error) {
	reports := make([]report, len(urls))
	sem := semaphore.NewWeighted(int64(workers))
	var wg sync.WaitGroup
	for i, u := range urls {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return nil, err
		}
		wg.Add(1)
		go func(i int, u string) {
			defer wg.Done()
			defer sem.Release(1)
			reports[i] = fn(ctx, u)
		}(i, u)
	}
	wg.Wait()
	return reports, nil
}

func check(ctx context.Context, url string, rps int) report {
	r := report{URL: url}
	client, err := sheets.New(url, rps)
	if err != nil {
		r.Error = err.Error()
		return r
	}
	items, st, err := app.NewMenuService(client).Load(ctx)
	r.Stats = st
	if err != nil {
		r.Error = err.Error()
		return r
	}
	r.Items = items
	return r
}
