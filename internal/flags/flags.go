package flags

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// ParameterAPI is the part of *ssm.Client the flag store uses.
type ParameterAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

type cachedFlag struct {
	value     bool
	fetchedAt time.Time
}

// Store reads boolean feature flags from SSM Parameter Store and caches
// each one for ttl. A flag that cannot be read is off.
type Store struct {
	client  ParameterAPI
	project string
	ttl     time.Duration
	now     func() time.Time

	mu    sync.RWMutex
	cache map[string]cachedFlag
}

func NewStore(client ParameterAPI, project string, ttl time.Duration) *Store {
	return &Store{
		client:  client,
		project: project,
		ttl:     ttl,
		now:     time.Now,
		cache:   make(map[string]cachedFlag),
	}
}

// ParameterName is the SSM path of a feature flag.
func (s *Store) ParameterName(feature string) string {
	return fmt.Sprintf("/%s/feature/%s", s.project, feature)
}

// PixEnabled reports whether PIX transactions are accepted.
func (s *Store) PixEnabled(ctx context.Context) bool {
	return s.Enabled(ctx, "acceptPIX")
}

func (s *Store) Enabled(ctx context.Context, feature string) bool {
	name := s.ParameterName(feature)

	if v, ok := s.get(name); ok {
		return v
	}

	out, err := s.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name: aws.String(name),
	})
	if err != nil {
		slog.Error("failed to read feature flag", "parameter", name, "error", err)
		return false
	}

	value := out.Parameter != nil && strings.EqualFold(strings.TrimSpace(aws.ToString(out.Parameter.Value)), "true")
	s.set(name, value)
	return value
}

func (s *Store) get(name string) (bool, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.cache[name]
	if !ok || s.now().Sub(f.fetchedAt) > s.ttl {
		return false, false
	}
	return f.value, true
}

func (s *Store) set(name string, value bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[name] = cachedFlag{value: value, fetchedAt: s.now()}
}
