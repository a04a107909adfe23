package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/richxcame/tutor-payouts/pkg/config"
	"github.com/richxcame/tutor-payouts/pkg/logger"
)

// Backend names a secret store.
type Backend string

const (
	BackendVault Backend = "vault"
	BackendAWS   Backend = "aws"
	BackendGCP   Backend = "gcp"
	BackendFile  Backend = "file"
)

var (
	ErrNoBackend   = errors.New("secrets: no backend configured")
	ErrInvalidRef  = errors.New("secrets: invalid reference")
	ErrKeyNotFound = errors.New("secrets: key not found")
)

// Ref points at one value: path[@version]#key. Without a key the
// whole payload must hold a single value.
type Ref struct {
	Path    string
	Version string
	Key     string
}

// ParseRef parses a reference string.
func ParseRef(raw string) (Ref, error) {
	s := strings.TrimSpace(raw)
	var ref Ref
	if i := strings.LastIndex(s, "#"); i >= 0 {
		ref.Key = strings.TrimSpace(s[i+1:])
		s = s[:i]
	}
	if i := strings.LastIndex(s, "@"); i >= 0 {
		ref.Version = strings.TrimSpace(s[i+1:])
		s = s[:i]
	}
	ref.Path = strings.Trim(strings.TrimSpace(s), "/")
	if ref.Path == "" {
		return Ref{}, fmt.Errorf("%w: %q", ErrInvalidRef, raw)
	}
	return ref, nil
}

func (r Ref) cacheKey() string {
	return r.Path + "@" + r.Version
}

// Source reads raw key/value payloads from a backend.
type Source interface {
	Backend() Backend
	Read(ctx context.Context, path, version string) (map[string]string, error)
	Close() error
}

type entry struct {
	data      map[string]string
	expiresAt time.Time
}

// Store resolves references through a Source with a TTL cache.
type Store struct {
	source Source
	ttl    time.Duration
	now    func() time.Time

	mu    sync.Mutex
	cache map[string]entry
}

// New opens the backend named in cfg.
func New(ctx context.Context, cfg config.SecretsConfig) (*Store, error) {
	var (
		src Source
		err error
	)
	switch Backend(cfg.Backend) {
	case "":
		return nil, ErrNoBackend
	case BackendVault:
		src, err = newVaultSource(cfg.Vault)
	case BackendAWS:
		src, err = newAWSSource(ctx, cfg.AWS)
	case BackendGCP:
		src, err = newGCPSource(ctx, cfg.GCP)
	case BackendFile:
		src, err = newFileSource(cfg.FileDir)
	default:
		err = fmt.Errorf("secrets: unsupported backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	return NewStore(src, cfg.CacheTTL), nil
}

// NewStore wraps src. A non-positive ttl disables caching.
func NewStore(src Source, ttl time.Duration) *Store {
	return &Store{source: src, ttl: ttl, now: time.Now, cache: make(map[string]entry)}
}

// Lookup returns the value raw points at.
func (s *Store) Lookup(ctx context.Context, raw string) (string, error) {
	ref, err := ParseRef(raw)
	if err != nil {
		return "", err
	}

	data, err := s.payload(ctx, ref)
	if err != nil {
		return "", err
	}

	if ref.Key == "" {
		if len(data) != 1 {
			return "", fmt.Errorf("%w: %s holds %d values, name one with #key", ErrKeyNotFound, ref.Path, len(data))
		}
		for _, v := range data {
			return v, nil
		}
	}
	v, ok := data[ref.Key]
	if !ok || v == "" {
		return "", fmt.Errorf("%w: %s#%s", ErrKeyNotFound, ref.Path, ref.Key)
	}
	return v, nil
}

func (s *Store) payload(ctx context.Context, ref Ref) (map[string]string, error) {
	key := ref.cacheKey()
	s.mu.Lock()
	e, ok := s.cache[key]
	s.mu.Unlock()
	if ok && s.now().Before(e.expiresAt) {
		return e.data, nil
	}

	data, err := s.source.Read(ctx, ref.Path, ref.Version)
	if err != nil {
		logger.Warn("Secret read failed",
			zap.String("backend", string(s.source.Backend())),
			zap.String("path", ref.Path),
			zap.Error(err),
		)
		return nil, err
	}

	if s.ttl > 0 {
		s.mu.Lock()
		s.cache[key] = entry{data: data, expiresAt: s.now().Add(s.ttl)}
		s.mu.Unlock()
	}
	return data, nil
}

// Close releases the backend client.
func (s *Store) Close() error {
	return s.source.Close()
}

// decodePayload accepts a JSON object of strings or a bare value, which
// is stored under "value".
func decodePayload(raw []byte) map[string]string {
	var obj map[string]string
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj
	}
	return map[string]string{"value": strings.TrimSpace(string(raw))}
}
