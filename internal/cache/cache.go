package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/newspulse/newspulse/internal/config"
	"github.com/newspulse/newspulse/internal/logger"
	"github.com/newspulse/newspulse/internal/utils"
)

// entry is one locally cached value with an absolute expiry.
type entry struct {
	value     []byte
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// localStore is the in-process fallback tier. Expired entries are
// never returned and are lazily purged on the access that finds them.
type localStore struct {
	mu      sync.RWMutex
	entries map[string]entry
}

func newLocalStore() *localStore {
	return &localStore{entries: make(map[string]entry)}
}

func (l *localStore) set(key string, value []byte, ttl time.Duration) {
	l.mu.Lock()
	l.entries[key] = entry{value: value, expiresAt: time.Now().Add(ttl)}
	l.mu.Unlock()
}

func (l *localStore) get(key string) ([]byte, bool) {
	l.mu.RLock()
	e, ok := l.entries[key]
	l.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if e.expired(time.Now()) {
		l.mu.Lock()
		delete(l.entries, key)
		l.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

func (l *localStore) delete(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.entries[key]; !ok {
		return false
	}
	delete(l.entries, key)
	return true
}

// deletePattern removes entries whose key matches the glob and returns
// the removed keys. Expired entries under the pattern count too; they
// are gone either way.
func (l *localStore) deletePattern(glob string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var removed []string
	for key := range l.entries {
		if ok, _ := path.Match(glob, key); ok {
			delete(l.entries, key)
			removed = append(removed, key)
		}
	}
	return removed
}

func (l *localStore) clear() {
	l.mu.Lock()
	l.entries = make(map[string]entry)
	l.mu.Unlock()
}

// purgeExpired is the housekeeping pass; it returns the live count.
func (l *localStore) purgeExpired() int {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, e := range l.entries {
		if e.expired(now) {
			delete(l.entries, key)
		}
	}
	return len(l.entries)
}

// Service is the two-tier cache. When the distributed backend is
// configured and reachable it is authoritative; the local tier absorbs
// every failure so callers never observe a backend outage.
type Service struct {
	rdb        *redis.Client
	local      *localStore
	prefix     string
	defaultTTL time.Duration
	failLogged atomic.Bool
}

// Stats reports cache service state.
type Stats struct {
	DistributedEnabled bool `json:"distributed_enabled"`
	DistributedUp      bool `json:"distributed_up"`
	LocalEntries       int  `json:"local_entries"`
}

// New builds the cache service. A Redis backend that cannot be reached
// at construction time is logged and dropped; the service starts in
// local-only mode instead of failing.
func New(cfg *config.Config) *Service {
	s := &Service{
		local:      newLocalStore(),
		prefix:     cfg.CachePrefix,
		defaultTTL: cfg.CacheTTL,
	}

	if !cfg.RedisEnabled {
		return s
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Get().Warn().Err(err).Msg("Invalid Redis URL, cache running local-only")
		return s
	}

	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Get().Warn().Err(err).Msg("Redis unreachable, cache running local-only")
		_ = client.Close()
		return s
	}

	s.rdb = client
	return s
}

// Close releases the distributed backend connection, if any.
func (s *Service) Close() error {
	if s.rdb != nil {
		return s.rdb.Close()
	}
	return nil
}

// Set stores the value under key with the given TTL. The local tier is
// always written, so Set succeeds even when the backend is down.
func (s *Service) Set(ctx context.Context, key string, value any, ttl time.Duration) bool {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	data, err := json.Marshal(value)
	if err != nil {
		logger.Get().Error().Err(err).Str("key", key).Msg("Cache value not serializable")
		return false
	}

	s.local.set(key, data, ttl)

	if s.rdb != nil {
		if err := s.rdb.Set(ctx, s.prefix+key, data, ttl).Err(); err != nil {
			s.markBackendFailure(err)
		} else {
			s.markBackendHealthy()
		}
	}
	return true
}

// Get loads the value for key into dest. The distributed tier is tried
// first when enabled; a backend failure silently falls back to the
// local tier. Returns false on miss or expiry.
func (s *Service) Get(ctx context.Context, key string, dest any) bool {
	if s.rdb != nil {
		data, err := s.rdb.Get(ctx, s.prefix+key).Bytes()
		switch {
		case err == nil:
			s.markBackendHealthy()
			if unmarshalErr := json.Unmarshal(data, dest); unmarshalErr == nil {
				return true
			}
		case err == redis.Nil:
			s.markBackendHealthy()
		default:
			s.markBackendFailure(err)
		}
	}

	data, ok := s.local.get(key)
	if !ok {
		return false
	}
	return json.Unmarshal(data, dest) == nil
}

// Delete removes the key from both tiers. Returns true if either tier
// held it.
func (s *Service) Delete(ctx context.Context, key string) bool {
	removed := s.local.delete(key)

	if s.rdb != nil {
		n, err := s.rdb.Del(ctx, s.prefix+key).Result()
		if err != nil {
			s.markBackendFailure(err)
		} else {
			s.markBackendHealthy()
			removed = removed || n > 0
		}
	}
	return removed
}

// DeletePattern removes every key matching the glob from both tiers
// and returns the number of distinct keys removed.
func (s *Service) DeletePattern(ctx context.Context, glob string) int {
	removed := make(map[string]struct{})
	for _, key := range s.local.deletePattern(glob) {
		removed[key] = struct{}{}
	}

	if s.rdb != nil {
		iter := s.rdb.Scan(ctx, 0, s.prefix+glob, 0).Iterator()
		var keys []string
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			s.markBackendFailure(err)
		} else if len(keys) > 0 {
			if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
				s.markBackendFailure(err)
			} else {
				s.markBackendHealthy()
				for _, k := range keys {
					removed[strings.TrimPrefix(k, s.prefix)] = struct{}{}
				}
			}
		}
	}
	return len(removed)
}

// Clear drops everything this service owns in both tiers.
func (s *Service) Clear(ctx context.Context) bool {
	s.local.clear()

	if s.rdb != nil {
		iter := s.rdb.Scan(ctx, 0, s.prefix+"*", 0).Iterator()
		var keys []string
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			s.markBackendFailure(err)
			return true
		}
		if len(keys) > 0 {
			if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
				s.markBackendFailure(err)
				return true
			}
		}
		s.markBackendHealthy()
	}
	return true
}

// Stats runs a local housekeeping pass and reports service state.
func (s *Service) Stats(ctx context.Context) Stats {
	st := Stats{
		DistributedEnabled: s.rdb != nil,
		LocalEntries:       s.local.purgeExpired(),
	}
	if s.rdb != nil {
		st.DistributedUp = s.rdb.Ping(ctx).Err() == nil
	}
	return st
}

// MakeKey derives a deterministic cache key from a namespace plus
// positional and keyword arguments. Keyword arguments are serialized
// in sorted-key order, so call sites that name the same arguments in
// a different order produce the same key. Every argument is
// JSON-encoded before hashing; JSON values are self-delimiting, so
// distinct argument lists never canonicalize to the same pre-hash
// string ("a|b" as one argument stays distinct from "a" and "b").
func MakeKey(namespace string, args []any, kwargs map[string]any) string {
	var b strings.Builder
	for _, a := range args {
		b.WriteString(encodeKeyPart(a))
		b.WriteByte('|')
	}
	if len(kwargs) > 0 {
		keys := make([]string, 0, len(kwargs))
		for k := range kwargs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteString(encodeKeyPart(k))
			b.WriteByte('=')
			b.WriteString(encodeKeyPart(kwargs[k]))
			b.WriteByte('|')
		}
	}
	return namespace + ":" + utils.Hash(b.String())[:32]
}

func encodeKeyPart(v any) string {
	enc, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(enc)
}

// markBackendFailure logs the outage once per transition into the
// failed state, then stays quiet until the backend recovers.
func (s *Service) markBackendFailure(err error) {
	if s.failLogged.CompareAndSwap(false, true) {
		logger.Get().Warn().Err(err).Msg("Cache backend unavailable, falling back to local store")
	}
}

func (s *Service) markBackendHealthy() {
	if s.failLogged.CompareAndSwap(true, false) {
		logger.Get().Info().Msg("Cache backend recovered")
	}
}
