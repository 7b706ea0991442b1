// Command catalog-fetch prints Shopify catalog resources as JSON.
//
//	catalog-fetch -resource collections
//	catalog-fetch -resource collection-products -id 42
//	catalog-fetch -resource publication-products -id 42 -publication 77
//	catalog-fetch -resource product -id 5
//
// Credentials and tuning come from the environment (or a .env file), see
// pkg/config.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/Sternrassler/shopify-catalog-client/pkg/catalog"
	"github.com/Sternrassler/shopify-catalog-client/pkg/client"
	"github.com/Sternrassler/shopify-catalog-client/pkg/config"
	"github.com/Sternrassler/shopify-catalog-client/pkg/logging"
	"github.com/Sternrassler/shopify-catalog-client/pkg/metrics"
	"github.com/Sternrassler/shopify-catalog-client/pkg/ratelimit"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		log.Error().Err(err).Msg("Fetch failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("catalog-fetch", flag.ContinueOnError)
	resource := fs.String("resource", catalog.ResourceCollections,
		"collections | collection-products | publication-products | product")
	id := fs.String("id", "", "collection ID, or product ID for -resource product")
	publication := fs.String("publication", "", "publication ID (defaults to SHOPIFY_PUBLICATION_ID)")
	metricsAddr := fs.String("metrics-addr", "", "serve Prometheus metrics on this address while fetching")
	envFile := fs.String("env-file", "", "env file to load (default .env)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var files []string
	if *envFile != "" {
		files = append(files, *envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return err
	}
	logging.Setup(cfg.Logging)

	if cfg.RedisURL != "" {
		redisClient, err := connectRedis(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		cfg.Client.ThrottleStore = ratelimit.NewRedisStore(redisClient, ratelimit.DefaultRedisKey)
	}

	if *metricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, *metricsAddr); err != nil {
				log.Error().Err(err).Str("addr", *metricsAddr).Msg("Metrics server failed")
			}
		}()
	}

	shopify, err := client.New(cfg.Client)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	defer shopify.Close()

	fetcher, err := catalog.New(shopify, cfg.Catalog)
	if err != nil {
		return fmt.Errorf("create fetcher: %w", err)
	}

	result, err := fetch(ctx, fetcher, *resource, *id, *publication)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// fetch dispatches to the fetcher for the named resource.
func fetch(ctx context.Context, f *catalog.Fetcher, resource, id, publication string) (any, error) {
	needID := func() error {
		if id == "" {
			return fmt.Errorf("-id is required for -resource %s", resource)
		}
		return nil
	}

	switch resource {
	case catalog.ResourceCollections:
		collections, err := f.Collections(ctx)
		if collections == nil {
			collections = []catalog.Collection{}
		}
		return collections, err

	case catalog.ResourceCollectionProducts:
		if err := needID(); err != nil {
			return nil, err
		}
		ids, err := f.CollectionProducts(ctx, id)
		return nonNil(ids), err

	case catalog.ResourcePublicationProducts:
		if err := needID(); err != nil {
			return nil, err
		}
		ids, err := f.PublicationProducts(ctx, id, publication)
		return nonNil(ids), err

	case catalog.ResourceProduct:
		if err := needID(); err != nil {
			return nil, err
		}
		return f.Product(ctx, id)

	default:
		return nil, fmt.Errorf("unknown resource %q", resource)
	}
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

// connectRedis accepts a redis:// URL or a bare host:port.
func connectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		opts = &redis.Options{Addr: url}
	}

	redisClient := redis.NewClient(opts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		redisClient.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", opts.Addr, err)
	}
	log.Info().Str("addr", opts.Addr).Msg("Sharing throttle state via Redis")
	return redisClient, nil
}
