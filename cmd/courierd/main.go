// README: Entry point; loads config, builds the road grid and fleet, starts HTTP server and background loops.
package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"courier/internal/config"
	"courier/internal/events"
	httptransport "courier/internal/http"
	"courier/internal/infra"
	"courier/internal/modules/driver"
	"courier/internal/modules/graph"
	"courier/internal/modules/history"
	"courier/internal/modules/matching"
	"courier/internal/modules/routing"
	"courier/internal/modules/traffic"
	"courier/internal/socket"
	"courier/internal/types"
)

// gridCenter anchors the demo road grid.
var gridCenter = types.Point{Lng: 116.4074, Lat: 39.9042}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	seed := cfg.Fleet.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	network := graph.BuildGrid(cfg.Fleet.GridSize, gridCenter, cfg.Routing.BaseSpeedKmh)
	log.Printf("road grid: %d nodes, %d edges", network.NodeCount(), network.EdgeCount())

	bus := events.NewDispatcher()

	hub := socket.NewHub()
	bus.Subscribe(hub.Publish)

	if cfg.Redis.Addr != "" {
		redisClient := infra.NewRedis(cfg.Redis.Addr)
		publisher := events.NewRedisPublisher(redisClient, cfg.Redis.EventChannel)
		bus.Subscribe(publisher.Publish)
	}

	if cfg.DB.DSN != "" {
		dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
		if err != nil {
			log.Fatalf("db init: %v", err)
		}
		defer dbPool.Close()
		archive := history.NewStore(dbPool)
		if err := archive.EnsureSchema(ctx); err != nil {
			log.Fatalf("db schema: %v", err)
		}
		bus.Subscribe(archive.Subscriber())
	}

	model := traffic.New(network, rand.New(rand.NewSource(seed+1)), traffic.WithPublisher(bus))
	planner := routing.NewPlanner(network, model, cfg.Routing, rand.New(rand.NewSource(seed+2)))
	model.SetInvalidator(planner)

	pool := driver.NewPool()
	seedFleet(pool, rng, cfg.Fleet.DriverCount)

	engine := matching.New(cfg.Matching, pool, planner, bus,
		matching.WithRand(rand.New(rand.NewSource(seed+3))))
	model.Subscribe(engine.OnTrafficUpdate)

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Traffic.TickSpec, model.Tick); err != nil {
		log.Fatalf("traffic schedule %q: %v", cfg.Traffic.TickSpec, err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	go engine.Run(ctx)

	server := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: httptransport.NewRouter(engine, planner, hub),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Printf("courierd listening on %s", cfg.HTTP.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}

// seedFleet registers a demo fleet scattered around the grid center.
func seedFleet(pool *driver.Pool, rng *rand.Rand, count int) {
	vehicles := []types.SizeClass{types.SizeSmall, types.SizeMedium, types.SizeLarge}
	for i := 0; i < count; i++ {
		d := driver.Driver{
			ID:   types.ID(fmt.Sprintf("driver-%03d", i+1)),
			Name: fmt.Sprintf("Driver %d", i+1),
			Position: types.Point{
				Lng: gridCenter.Lng + (rng.Float64()-0.5)*0.08,
				Lat: gridCenter.Lat + (rng.Float64()-0.5)*0.08,
			},
			Vehicle:     vehicles[rng.Intn(len(vehicles))],
			Rating:      3 + rng.Float64()*2,
			Efficiency:  0.5 + rng.Float64()*0.5,
			Reliability: 0.7 + rng.Float64()*0.3,
		}
		if err := pool.Add(d); err != nil {
			log.Printf("seed fleet: %v", err)
		}
	}
}
