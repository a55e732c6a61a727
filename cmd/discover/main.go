// Command discover runs the nearby-provider flow from a terminal: it resolves
// a position, lists providers around it and optionally narrows them to one
// category.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/servicemapcy/servicemap/backend/internal/adapters/database"
	"github.com/servicemapcy/servicemap/backend/internal/adapters/providers/location"
	"github.com/servicemapcy/servicemap/backend/internal/application/discovery"
	"github.com/servicemapcy/servicemap/backend/internal/application/services"
	"github.com/servicemapcy/servicemap/backend/internal/domain/entities"
	"github.com/servicemapcy/servicemap/backend/internal/infrastructure/clients/postgres"
	"github.com/servicemapcy/servicemap/backend/internal/infrastructure/observability"
	"github.com/servicemapcy/servicemap/backend/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	var (
		city     = flag.String("city", cfg.Location.City, "Cyprus city to search around (e.g. Limassol)")
		lat      = flag.Float64("lat", cfg.Location.Latitude, "latitude, used when -city is empty")
		lng      = flag.Float64("lng", cfg.Location.Longitude, "longitude, used when -city is empty")
		radius   = flag.Float64("radius", cfg.Discovery.DefaultRadiusKm, "search radius in kilometres")
		category = flag.String("category", "", "category id or name to filter by")
		verbose  = flag.Bool("v", false, "log every state transition")
	)
	flag.Parse()

	level := cfg.LogLevel
	if *verbose {
		level = "debug"
	}
	// Results go to stdout, so logs use the console writer on stderr.
	observability.InitLogger(observability.LoggerConfig{
		Service: "servicemap-discover",
		Env:     "development",
		Level:   level,
		Out:     os.Stderr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	source, err := locationSource(*city, *lat, *lng, cfg.Location.Granted)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid location")
	}

	pgClient, err := postgres.NewClient(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to PostgreSQL")
	}
	defer pgClient.Close()

	svc := services.NewDiscoveryService(
		database.NewCategoryAdapter(pgClient),
		database.NewProviderAdapter(pgClient),
		database.NewNearbyAdapter(pgClient),
		nil,
		nil,
		cfg.Discovery.DefaultRadiusKm,
	)

	flow := discovery.NewFlow(source, svc, svc, *radius)
	if *verbose {
		flow.Observe(func(s discovery.Snapshot) {
			log.Debug().Str("state", string(s.State)).Uint64("seq", s.Seq).Msg("discovery")
		})
	}

	categories, err := flow.LoadCategories(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load categories")
	}

	if *category != "" {
		id, ok := matchCategory(categories, *category)
		if !ok {
			log.Fatal().Str("category", *category).Msg("unknown category")
		}
		if _, err := flow.SelectCategory(ctx, id); err != nil {
			log.Fatal().Err(err).Msg("failed to select category")
		}
	}

	snap := flow.Activate(ctx)
	switch snap.State {
	case discovery.StatePermissionDenied:
		fmt.Println("Location permission is required to find providers near you.")
		os.Exit(2)
	case discovery.StateLocationFailed:
		fmt.Printf("Could not determine your location: %v\n", snap.Err)
		os.Exit(2)
	case discovery.StateQueryFailed:
		fmt.Printf("Could not load nearby providers: %v\n", snap.Err)
		os.Exit(1)
	}

	printProviders(snap, flow.Filter().SelectedCategory())
}

func locationSource(city string, lat, lng float64, granted bool) (*location.StaticProvider, error) {
	if city != "" {
		source, err := location.NewCityProvider(city)
		if err != nil {
			return nil, err
		}
		if !granted {
			source.SetPermission(entities.PermissionDenied)
		}
		return source, nil
	}

	permission := entities.PermissionGranted
	if !granted {
		permission = entities.PermissionDenied
	}
	if lat == 0 && lng == 0 {
		return location.NewStaticProvider(permission, nil), nil
	}
	return location.NewStaticProvider(permission, &entities.Coordinates{Latitude: lat, Longitude: lng}), nil
}

func matchCategory(categories []*entities.Category, query string) (string, bool) {
	for _, c := range categories {
		if c.ID == query || strings.EqualFold(c.Name, query) || strings.EqualFold(c.NameEn, query) {
			return c.ID, true
		}
	}
	return "", false
}

func printProviders(snap discovery.Snapshot, category *entities.Category) {
	heading := "All categories"
	if category != nil {
		heading = category.Name
	}
	fmt.Printf("%s near %.4f, %.4f: %d found\n\n", heading, snap.Coordinates.Latitude, snap.Coordinates.Longitude, len(snap.Providers))
	if len(snap.Providers) == 0 {
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DISTANCE\tPROVIDER\tCATEGORY\tPHONE")
	for _, p := range snap.Providers {
		fmt.Fprintf(w, "%.1f km\t%s\t%s %s\t%s\n", p.DistanceKm, p.BusinessName, p.CategoryIcon, p.CategoryName, p.Phone)
	}
	_ = w.Flush()
}
