// Command corridor-cachectl performs offline maintenance on the
// corridor proxy's persistent cache: evicting entries that have gone
// unread for longer than a configurable age (spec.md §3 "Lifecycles").
package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vasiliyffedorov/corridor-proxy/internal/persistcache"
	"github.com/vasiliyffedorov/corridor-proxy/pkg/config"
)

func main() {
	var (
		dbPath     = flag.String("db", "", "path to the cache SQLite file (defaults to the configured cache.database.path)")
		configPath = flag.String("config", "", "INI config file to read cache.database.path from, if -db is not set")
		maxAgeDays = flag.Int("max-age-days", 30, "evict cache entries whose last access is older than this many days")
		dryRun     = flag.Bool("dry-run", false, "report what would be evicted without opening the cache for writes")
	)
	flag.Parse()

	log := logrus.New()

	path := *dbPath
	if path == "" {
		cfg, err := resolveConfig(*configPath)
		if err != nil {
			log.WithError(err).Fatal("resolving cache database path")
		}
		path = cfg.Cache.DatabasePath
	}

	if *dryRun {
		fmt.Printf("dry-run: would evict entries under %s last accessed more than %d days ago\n", path, *maxAgeDays)
		return
	}

	cache, err := persistcache.Open(path)
	if err != nil {
		log.WithError(err).Fatal("opening cache database")
	}
	defer cache.Close()

	evicted, err := cache.Cleanup(*maxAgeDays, time.Now())
	if err != nil {
		log.WithError(err).Fatal("cleaning up cache")
	}

	fmt.Printf("evicted %d cache entries older than %d days from %s\n", evicted, *maxAgeDays, path)
}

func resolveConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}
