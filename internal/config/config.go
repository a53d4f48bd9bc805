// README: Config loader with env defaults for HTTP, DB, Redis, matching, routing, and traffic settings.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type MatchingConfig struct {
	TickSeconds        int
	BatchSize          int
	MaxOrdersPerDriver int
	RadiusKm           float64
	DistanceWeight     float64
	RatingWeight       float64
	LoadWeight         float64
}

type RoutingConfig struct {
	BaseSpeedKmh       float64
	SimplifyTolerance  float64
	CacheSize          int
	CongestionExponent float64
}

type TrafficConfig struct {
	TickSpec string
}

type Config struct {
	HTTP struct {
		Addr string
	}
	DB struct {
		DSN string
	}
	Redis struct {
		Addr         string
		EventChannel string
	}
	Matching MatchingConfig
	Routing  RoutingConfig
	Traffic  TrafficConfig
	Fleet    struct {
		GridSize    int
		DriverCount int
		Seed        int64
	}
}

func Load() (Config, error) {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	var cfg Config
	cfg.HTTP.Addr = envOrDefault("COURIER_HTTP_ADDR", ":8080")
	cfg.DB.DSN = envOrDefault("COURIER_DB_DSN", "")
	cfg.Redis.Addr = envOrDefault("COURIER_REDIS_ADDR", "")
	cfg.Redis.EventChannel = envOrDefault("COURIER_REDIS_EVENT_CHANNEL", "courier:events")

	cfg.Matching.TickSeconds = envOrDefaultInt("COURIER_MATCH_TICK", 3)
	cfg.Matching.BatchSize = envOrDefaultInt("COURIER_MATCH_BATCH", 10)
	cfg.Matching.MaxOrdersPerDriver = envOrDefaultInt("COURIER_MAX_ORDERS_PER_DRIVER", 3)
	cfg.Matching.RadiusKm = envOrDefaultFloat("COURIER_MATCH_RADIUS_KM", 5.0)
	cfg.Matching.DistanceWeight = envOrDefaultFloat("COURIER_MATCH_DISTANCE_WEIGHT", 0.5)
	cfg.Matching.RatingWeight = envOrDefaultFloat("COURIER_MATCH_RATING_WEIGHT", 0.3)
	cfg.Matching.LoadWeight = envOrDefaultFloat("COURIER_MATCH_LOAD_WEIGHT", 0.2)

	cfg.Routing.BaseSpeedKmh = envOrDefaultFloat("COURIER_ROUTE_BASE_SPEED_KMH", 40.0)
	cfg.Routing.SimplifyTolerance = envOrDefaultFloat("COURIER_ROUTE_SIMPLIFY_TOLERANCE", 0.0005)
	cfg.Routing.CacheSize = envOrDefaultInt("COURIER_ROUTE_CACHE_SIZE", 100)
	cfg.Routing.CongestionExponent = envOrDefaultFloat("COURIER_ROUTE_CONGESTION_EXPONENT", 2.0)

	cfg.Traffic.TickSpec = envOrDefault("COURIER_TRAFFIC_TICK", "@every 60s")

	cfg.Fleet.GridSize = envOrDefaultInt("COURIER_FLEET_GRID_SIZE", 20)
	cfg.Fleet.DriverCount = envOrDefaultInt("COURIER_FLEET_DRIVERS", 25)
	cfg.Fleet.Seed = int64(envOrDefaultInt("COURIER_FLEET_SEED", 0))

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			return n
		}
	}
	return def
}
