package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.host", typ: kString, env: "KABAR_SERVER_HOST",
		apply:   func(cfg *Config, v any) { cfg.Server.Host = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.Host },
	},
	{
		key: "server.port", typ: kInt, env: "KABAR_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.api_token", typ: kString, env: "KABAR_API_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Server.APIToken = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.APIToken },
	},
	{
		key: "storage.data_dir", typ: kString, env: "KABAR_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "log.level", typ: kString, env: "KABAR_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "log.format", typ: kString, env: "KABAR_LOG_FORMAT",
		apply:   func(cfg *Config, v any) { cfg.Log.Format = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Format },
	},
	{
		key: "model.neighbors", typ: kInt, env: "KABAR_MODEL_NEIGHBORS",
		apply:   func(cfg *Config, v any) { cfg.Model.Neighbors = v.(int) },
		extract: func(cfg Config) any { return cfg.Model.Neighbors },
	},
	{
		key: "model.max_features", typ: kInt, env: "KABAR_MODEL_MAX_FEATURES",
		apply:   func(cfg *Config, v any) { cfg.Model.MaxFeatures = v.(int) },
		extract: func(cfg Config) any { return cfg.Model.MaxFeatures },
	},
	{
		key: "model.ngram_max", typ: kInt, env: "KABAR_MODEL_NGRAM_MAX",
		apply:   func(cfg *Config, v any) { cfg.Model.NGramMax = v.(int) },
		extract: func(cfg Config) any { return cfg.Model.NGramMax },
	},
	{
		key: "model.cache_size", typ: kInt, env: "KABAR_MODEL_CACHE_SIZE",
		apply:   func(cfg *Config, v any) { cfg.Model.CacheSize = v.(int) },
		extract: func(cfg Config) any { return cfg.Model.CacheSize },
	},
	{
		key: "corpus.categories", typ: kString, env: "KABAR_CATEGORIES",
		apply:   func(cfg *Config, v any) { cfg.Corpus.Categories = v.(string) },
		extract: func(cfg Config) any { return cfg.Corpus.Categories },
	},
	{
		key: "corpus.seed", typ: kBool, env: "KABAR_CORPUS_SEED",
		apply:   func(cfg *Config, v any) { cfg.Corpus.Seed = v.(bool) },
		extract: func(cfg Config) any { return cfg.Corpus.Seed },
	},
	{
		key: "corpus.stopwords_file", typ: kString, env: "KABAR_CORPUS_STOPWORDS_FILE",
		apply:   func(cfg *Config, v any) { cfg.Corpus.StopwordsFile = v.(string) },
		extract: func(cfg Config) any { return cfg.Corpus.StopwordsFile },
	},
	{
		key: "retrain.interval", typ: kString, env: "KABAR_RETRAIN_INTERVAL",
		apply:   func(cfg *Config, v any) { cfg.Retrain.Interval = v.(string) },
		extract: func(cfg Config) any { return cfg.Retrain.Interval },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kBool:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if bv, err := strconv.ParseBool(v); err == nil {
					s.apply(cfg, bv)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kBool:
			if b, err := strconv.ParseBool(raw); err == nil {
				s.apply(cfg, b)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
