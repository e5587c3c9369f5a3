package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	_ "modernc.org/sqlite"

	"github.com/clb9/swellstrike/internal/api"
	"github.com/clb9/swellstrike/internal/conditions"
	"github.com/clb9/swellstrike/internal/ingest"
	"github.com/clb9/swellstrike/internal/locations"
	"github.com/clb9/swellstrike/internal/models"
	"github.com/clb9/swellstrike/internal/scoring"
	"github.com/clb9/swellstrike/internal/sources"
	"github.com/clb9/swellstrike/internal/store"
)

type Globals struct {
	DB     string `help:"Path to the SQLite database." default:"data/swellstrike.db"`
	APIKey string `name:"api-key" env:"OPENWEATHER_API_KEY" help:"OpenWeatherMap API key. Without it the fallback source is disabled."`
}

type ServeCmd struct {
	Port          string        `help:"HTTP listen port." default:"8080"`
	Interval      time.Duration `help:"Refresh interval." default:"15m"`
	Concurrency   int           `help:"Concurrent location refreshes per cycle." default:"4"`
	FetchTimeout  time.Duration `name:"fetch-timeout" help:"Per-location fetch budget." default:"15s"`
	StrikeSilence time.Duration `name:"strike-silence" help:"Close open strikes after this long without data." default:"45m"`
	NoPoll        bool          `name:"no-poll" help:"Disable the refresh loop (server only, for local dev)."`
}

type OnceCmd struct {
	Concurrency   int           `help:"Concurrent location refreshes." default:"4"`
	FetchTimeout  time.Duration `name:"fetch-timeout" help:"Per-location fetch budget." default:"15s"`
	StrikeSilence time.Duration `name:"strike-silence" help:"Close open strikes after this long without data." default:"45m"`
}

var cli struct {
	Globals

	Serve ServeCmd `cmd:"" default:"1" help:"Run the refresh loop and HTTP API."`
	Once  OnceCmd  `cmd:"" help:"Run one refresh cycle, print the outcome, and exit."`
}

func main() {
	kctx := kong.Parse(&cli,
		kong.Name("swellstrike"),
		kong.Description("Aggregates surf and snow conditions and detects strike windows."),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
	)
	kctx.FatalIfErrorf(kctx.Run(&cli.Globals))
}

// app holds the wired components shared by the serve and once commands.
type app struct {
	db        *sql.DB
	store     *store.Store
	cache     *conditions.Cache
	detector  *conditions.Detector
	scheduler *ingest.Scheduler
	locations []models.Location
}

func (a *app) Close() {
	a.db.Close()
}

func buildApp(g *Globals, interval time.Duration, concurrency int, fetchTimeout, silence time.Duration) (*app, error) {
	db, err := sql.Open("sqlite", g.DB)
	if err != nil {
		return nil, err
	}
	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	st := store.New(db)
	if err := st.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	log.Println("database migrated")

	locs := locations.Defaults()
	if g.APIKey == "" {
		log.Println("no OpenWeatherMap API key configured, fallback source disabled")
	}
	adapters := []sources.Adapter{
		sources.NewNDBC(),
		sources.NewBOMMarine(),
		sources.NewNWS(),
		sources.NewOpenWeather(g.APIKey),
	}
	chains := locations.Chains(locs, adapters)

	usable := 0
	for _, loc := range locs {
		if len(chains[loc.ID]) == 0 {
			log.Printf("warning: no usable sources for %s", loc.ID)
			continue
		}
		usable++
	}
	if usable == 0 {
		db.Close()
		return nil, errors.New("no usable sources for any location")
	}

	cache := conditions.NewCache()
	detector := conditions.NewDetector(scoring.DefaultThreshold, silence)

	// Carry state across restarts: reopen strike events and serve the last
	// known conditions until the first cycle lands.
	now := time.Now().UTC()
	open, err := st.OpenStrikeEvents()
	if err != nil {
		db.Close()
		return nil, err
	}
	if len(open) > 0 {
		detector.Restore(open, now)
		log.Printf("restored %d open strike events", len(open))
	}
	latest, err := st.LatestSnapshots()
	if err != nil {
		db.Close()
		return nil, err
	}
	for _, sr := range latest {
		cache.Put(sr)
	}
	if len(latest) > 0 {
		log.Printf("warmed cache with %d snapshots", len(latest))
	}

	scheduler := ingest.NewScheduler(ingest.Config{
		Store:        st,
		Cache:        cache,
		Detector:     detector,
		Locations:    locs,
		Chains:       chains,
		Interval:     interval,
		Concurrency:  concurrency,
		FetchTimeout: fetchTimeout,
	})

	return &app{
		db:        db,
		store:     st,
		cache:     cache,
		detector:  detector,
		scheduler: scheduler,
		locations: locs,
	}, nil
}

func (c *ServeCmd) Run(g *Globals) error {
	a, err := buildApp(g, c.Interval, c.Concurrency, c.FetchTimeout, c.StrikeSilence)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if !c.NoPoll {
		go a.scheduler.Run(ctx)
	} else {
		log.Println("polling disabled (--no-poll)")
	}

	server := api.NewServer(api.Config{
		Cache:     a.cache,
		Detector:  a.detector,
		Store:     a.store,
		Scheduler: a.scheduler,
		Locations: a.locations,
		Port:      c.Port,
		Interval:  c.Interval,
	})
	return server.Run(ctx)
}

func (c *OnceCmd) Run(g *Globals) error {
	a, err := buildApp(g, 0, c.Concurrency, c.FetchTimeout, c.StrikeSilence)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	res, err := a.scheduler.RunCycle(ctx)
	if err != nil {
		return err
	}

	strikes := a.detector.ActiveStrikes("")
	if len(strikes) == 0 {
		log.Println("no active strikes")
	}
	for _, evt := range strikes {
		score, _ := a.detector.CurrentScore(evt.LocationID)
		log.Printf("STRIKE %s (%s): score %d, peak %d since %s",
			evt.LocationID, evt.Domain, score, evt.PeakScore, evt.StartedAt.Format(time.RFC3339))
	}
	log.Printf("cycle %s: %d ok, %d failed", res.State, res.Succeeded, res.Failed)
	return nil
}
