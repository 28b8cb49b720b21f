// Package pagecache keeps response bodies of pages that rarely change in badger so
// that repeated runs do not fetch them again.
package pagecache

import (
	"boxdstats/internal/components/assert"
	"boxdstats/internal/components/chrono"
	"boxdstats/internal/components/telemetry"
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"net/url"
	"time"

	"github.com/PuerkitoBio/purell"
	"github.com/dgraph-io/badger/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("boxdstats/components/pagecache")

var errPageNotFound = badger.ErrKeyNotFound

const (
	report_cache_get = "pagecache.get"
	report_cache_set = "pagecache.set"
)

const DefaultLifetime = time.Hour * 24 * 7

type webpage struct {
	Contents  []byte
	ExpiresAt int64
}

type Cache struct {
	db       *badger.DB
	lifetime time.Duration
	clock    chrono.API
	tel      telemetry.API
}

type Options struct {
	// Dir is where badger keeps its files, an empty dir keeps everything in memory.
	Dir      string
	Lifetime time.Duration
}

// Open opens (or creates) the cache. Callers must Close it.
func Open(opts Options, clock chrono.API, tel telemetry.API) (*Cache, error) {
	assert.NotNil(clock)
	assert.NotNil(tel)

	badgerOpts := badger.DefaultOptions(opts.Dir).WithLogger(nil)
	if opts.Dir == "" {
		badgerOpts = badgerOpts.WithInMemory(true)
	}
	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, err
	}
	return New(db, opts.Lifetime, clock, tel), nil
}

// New wraps an already opened badger db, a non positive lifetime falls back to
// DefaultLifetime.
func New(db *badger.DB, lifetime time.Duration, clock chrono.API, tel telemetry.API) *Cache {
	if lifetime <= 0 {
		lifetime = DefaultLifetime
	}
	return &Cache{
		db:       db,
		lifetime: lifetime,
		clock:    clock,
		tel:      telemetry.NewScopedAPI("pagecache", tel),
	}
}

func (c *Cache) Close() error {
	return c.db.Close()
}

// cacheKey normalizes rawUrl so that trivially different urls of the same page share an
// entry.
func cacheKey(rawUrl string) (string, error) {
	parsed, err := url.Parse(rawUrl)
	if err != nil {
		return "", err
	}
	normalized := purell.NormalizeURL(
		parsed,
		purell.FlagsSafe|
			purell.FlagRemoveDotSegments|
			purell.FlagRemoveDuplicateSlashes|
			purell.FlagRemoveFragment|
			purell.FlagSortQuery,
	)
	return normalized, nil
}

func (c *Cache) get(ctx context.Context, rawUrl string) (webpage, error) {
	ctx, span := tracer.Start(ctx, "get")
	defer span.End()

	key, err := cacheKey(rawUrl)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create cache key")
		return webpage{}, err
	}
	span.SetAttributes(attribute.KeyValue{
		Key:   "cache_key",
		Value: attribute.StringValue(key),
	})

	tx := c.db.NewTransaction(false)
	defer tx.Discard()
	item, err := tx.Get([]byte(key))
	if err == badger.ErrKeyNotFound {
		return webpage{}, errPageNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read item from badger")
		return webpage{}, err
	}
	serialized, err := item.ValueCopy(nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to copy cached item")
		return webpage{}, err
	}

	var cached webpage
	err = gob.NewDecoder(bytes.NewBuffer(serialized)).Decode(&cached)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to deserialize cached item")
		return webpage{}, err
	}

	if c.clock.Now().Unix() >= cached.ExpiresAt {
		span.AddEvent("delete expired cache key", trace.WithAttributes(attribute.KeyValue{
			Key:   "key",
			Value: attribute.StringValue(key),
		}))
		err = c.db.Update(func(txn *badger.Txn) error {
			return txn.Delete([]byte(key))
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to delete expired key")
		}
		return webpage{}, errPageNotFound
	}

	span.AddEvent(
		"successfully returned cached webpage",
		trace.WithAttributes(attribute.KeyValue{
			Key:   "contentlength",
			Value: attribute.IntValue(len(cached.Contents)),
		}),
	)
	return cached, nil
}

func (c *Cache) set(ctx context.Context, rawUrl string, page webpage) error {
	ctx, span := tracer.Start(ctx, "set")
	defer span.End()

	key, err := cacheKey(rawUrl)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create cache key")
		return err
	}
	span.SetAttributes(attribute.KeyValue{
		Key:   "cache_key",
		Value: attribute.StringValue(key),
	})

	serialized := bytes.NewBuffer(nil)
	err = gob.NewEncoder(serialized).Encode(page)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to serialize webpage")
		return err
	}

	err = c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), serialized.Bytes())
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to set badger item")
		return err
	}
	return nil
}

// Get returns the cached body of rawUrl if there is a live entry for it.
func (c *Cache) Get(ctx context.Context, rawUrl string) ([]byte, bool) {
	page, err := c.get(ctx, rawUrl)
	if errors.Is(err, errPageNotFound) {
		return nil, false
	}
	if err != nil {
		c.tel.ReportWarning(report_cache_get, err, rawUrl)
		return nil, false
	}
	return page.Contents, true
}

// Set stores body under rawUrl for the cache's lifetime.
func (c *Cache) Set(ctx context.Context, rawUrl string, body []byte) {
	err := c.set(ctx, rawUrl, webpage{
		Contents:  body,
		ExpiresAt: c.clock.Now().Add(c.lifetime).Unix(),
	})
	if err != nil {
		c.tel.ReportWarning(report_cache_set, err, rawUrl)
	}
}
