package bitunix

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// symbolInfoTTL bounds how long precision metadata is served from cache.
// Precisions change only when the exchange relists a pair.
const symbolInfoTTL = 10 * time.Minute

const symbolInfoKey = "bitunix:symbol_info:%s"

// CachedClient decorates a Gateway with a Redis cache for symbol metadata,
// the one lookup every open, reset and TP placement repeats. Degradation is
// graceful: any cache failure falls through to the inner gateway and is
// logged at debug, never surfaced.
type CachedClient struct {
	Gateway
	redis  *redis.Client
	logger zerolog.Logger
}

// NewCachedClient wraps inner with a Redis symbol-info cache.
func NewCachedClient(inner Gateway, rdb *redis.Client, logger zerolog.Logger) *CachedClient {
	return &CachedClient{
		Gateway: inner,
		redis:   rdb,
		logger:  logger.With().Str("component", "BitunixCache").Logger(),
	}
}

// GetSymbolInfo serves precision metadata from Redis when fresh, falling
// back to the inner gateway and populating the cache on a miss.
func (c *CachedClient) GetSymbolInfo(symbol string) (*SymbolInfo, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	key := fmt.Sprintf(symbolInfoKey, symbol)
	if raw, err := c.redis.Get(ctx, key).Bytes(); err == nil {
		var info SymbolInfo
		if err := json.Unmarshal(raw, &info); err == nil {
			return &info, nil
		}
		c.logger.Debug().Str("symbol", symbol).Msg("corrupt cache entry, refetching")
	} else if err != redis.Nil {
		c.logger.Debug().Err(err).Str("symbol", symbol).Msg("cache read failed")
	}

	info, err := c.Gateway.GetSymbolInfo(symbol)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(info); err == nil {
		if err := c.redis.Set(ctx, key, raw, symbolInfoTTL).Err(); err != nil {
			c.logger.Debug().Err(err).Str("symbol", symbol).Msg("cache write failed")
		}
	}
	return info, nil
}

// GetLastPrice is intentionally not cached: the monitor's tightening
// decisions need the freshest print the REST API serves.
func (c *CachedClient) GetLastPrice(symbol string) (decimal.Decimal, error) {
	return c.Gateway.GetLastPrice(symbol)
}
