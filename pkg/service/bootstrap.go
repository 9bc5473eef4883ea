package service

import (
	"fmt"

	"github.com/synaptica-ai/prelude-parser/pkg/cache"
	"github.com/synaptica-ai/prelude-parser/pkg/common/config"
	"github.com/synaptica-ai/prelude-parser/pkg/common/database"
	"github.com/synaptica-ai/prelude-parser/pkg/common/kafka"
	"github.com/synaptica-ai/prelude-parser/pkg/common/logger"
	"github.com/synaptica-ai/prelude-parser/pkg/fetch"
	"github.com/synaptica-ai/prelude-parser/pkg/flatfile"
	"github.com/synaptica-ai/prelude-parser/pkg/merge"
	"github.com/synaptica-ai/prelude-parser/pkg/store"
)

// Bootstrap builds a Service from configuration, connecting the store,
// cache and publisher that are enabled. The returned cleanup closes them.
func Bootstrap(cfg *config.Config, name string) (*Service, func(), error) {
	required, err := flatfile.ParseRequired(cfg.ParserRequiredFields)
	if err != nil {
		return nil, nil, err
	}
	profiles, err := merge.LoadProfiles(cfg.MergeProfilesPath)
	if err != nil {
		return nil, nil, err
	}

	opts := []Option{
		WithName(name),
		WithRequired(required...),
		WithProfiles(profiles),
		WithShortNames(cfg.ParserShortNames),
		WithFetcher(fetch.New(fetch.ConfigFrom(cfg))),
	}
	var closers []func() error

	if cfg.PostgresEnabled {
		db, err := database.GetPostgres(cfg)
		if err != nil {
			return nil, nil, err
		}
		repo := store.NewRepository(db)
		if err := repo.AutoMigrate(); err != nil {
			return nil, nil, fmt.Errorf("migrating flatfile tables: %w", err)
		}
		opts = append(opts, WithStore(repo))
		closers = append(closers, database.ClosePostgres)
	}
	if cfg.RedisEnabled {
		opts = append(opts, WithCache(cache.New(database.GetRedis(cfg), cfg.CacheTTL)))
		closers = append(closers, database.CloseRedis)
	}
	if cfg.KafkaEnabled {
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaParsedTopic)
		opts = append(opts, WithPublisher(producer))
		closers = append(closers, producer.Close)
	}

	cleanup := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Log.WithError(err).Warn("failed to close collaborator")
			}
		}
	}
	return New(opts...), cleanup, nil
}
