package arp

import (
	"log/slog"
	"time"

	"github.com/soypat/lgate/ethernet"
	"github.com/soypat/lgate/internal"
	"github.com/soypat/lgate/internal/lrucache"
)

// CacheConfig configures a [Cache]. Size is fixed after the first [Cache.Reset].
type CacheConfig struct {
	// Size is the maximum amount of resolved addresses kept.
	Size int
	// MaxAge is how long an entry stays valid after its last confirmation.
	// Zero disables ageing.
	MaxAge time.Duration
	Logger *slog.Logger
}

// Cache maps IPv4 addresses to hardware addresses. It is bounded: on overflow
// the least recently confirmed entry is evicted. Lookups never block; a miss is
// resolved by the caller broadcasting a request.
type Cache struct {
	tbl    lrucache.Cache[[4]byte, entry]
	maxAge time.Duration
	logger
}

type entry struct {
	hw        [6]byte
	confirmed time.Time
}

// Reset clears the cache and applies cfg. Memory is reserved on the first call
// and reused afterwards when the size does not grow.
func (c *Cache) Reset(cfg CacheConfig) error {
	if cfg.Size <= 0 || cfg.MaxAge < 0 {
		return errInvalidConfig
	}
	if c.tbl.Cap() != cfg.Size {
		c.tbl = lrucache.New[[4]byte, entry](cfg.Size)
	} else {
		c.tbl.Reset()
	}
	c.maxAge = cfg.MaxAge
	c.logger = logger{log: cfg.Logger}
	return nil
}

// Lookup returns the hardware address for ip if resolved.
func (c *Cache) Lookup(ip [4]byte) (hw [6]byte, ok bool) {
	e, ok := c.tbl.Get(ip)
	return e.hw, ok
}

// Confirm records that ip is reachable at hw as of now. Unspecified or
// broadcast IPv4 addresses and group hardware addresses are ignored.
func (c *Cache) Confirm(ip [4]byte, hw [6]byte, now time.Time) bool {
	if ip == [4]byte{} || ip == [4]byte{255, 255, 255, 255} || ethernet.IsMulticastAddr(&hw) {
		return false
	}
	evicted, ok := c.tbl.Push(ip, entry{hw: hw, confirmed: now})
	if ok {
		c.debug("arp:evict", internal.SlogAddr4("ip", &evicted))
	}
	c.trace("arp:confirm", internal.SlogAddr4("ip", &ip), internal.SlogAddr6("hw", &hw))
	return true
}

// Forget removes ip from the cache.
func (c *Cache) Forget(ip [4]byte) bool { return c.tbl.Delete(ip) }

// Expire removes entries not confirmed within MaxAge of now and returns the amount removed.
func (c *Cache) Expire(now time.Time) int {
	if c.maxAge <= 0 {
		return 0
	}
	n := c.tbl.DeleteFunc(func(_ [4]byte, e entry) bool {
		return now.Sub(e.confirmed) > c.maxAge
	})
	if n > 0 {
		c.debug("arp:expire", slog.Int("n", n), slog.Int("remaining", c.tbl.Len()))
	}
	return n
}

// Len returns the amount of resolved addresses.
func (c *Cache) Len() int { return c.tbl.Len() }

// Cap returns the configured size of the cache.
func (c *Cache) Cap() int { return c.tbl.Cap() }

type logger struct {
	log *slog.Logger
}

func (l logger) debug(msg string, attrs ...slog.Attr) {
	internal.LogAttrs(l.log, slog.LevelDebug, msg, attrs...)
}
func (l logger) trace(msg string, attrs ...slog.Attr) {
	internal.LogAttrs(l.log, internal.LevelTrace, msg, attrs...)
}
