package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Lucas-Zerino/grows-gateway/internal/domain/event"
	"github.com/google/uuid"
)

// Taxonomy for inbound webhook handling. Unauthorized and BadPayload are
// terminal for the call; an unresolved instance is not an error at all (the
// provider still gets a 2xx and the event is dropped).
var (
	ErrUnauthorized   = errors.New("webhook: signature verification failed")
	ErrBadPayload     = errors.New("webhook: malformed payload")
	ErrConfigNotFound = errors.New("webhook: no configuration for path id")
)

// Request is one inbound webhook call, already read off the wire.
type Request struct {
	Provider string
	// PathID is the internal instance id the provider was configured to
	// call back on.
	PathID  uuid.UUID
	Headers http.Header
	Body    []byte
}

// Normalizer translates one provider's webhook shape into canonical events.
// Events that cannot be matched to a known instance are omitted from the
// result, never surfaced as errors.
type Normalizer interface {
	Provider() string
	Normalize(ctx context.Context, req Request) ([]event.Event, error)
}

type Registry struct {
	byName map[string]Normalizer
}

func NewRegistry(normalizers ...Normalizer) *Registry {
	r := &Registry{byName: make(map[string]Normalizer, len(normalizers))}
	for _, n := range normalizers {
		r.byName[n.Provider()] = n
	}
	return r
}

func (r *Registry) Get(name string) (Normalizer, error) {
	n, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown provider %q", ErrBadPayload, name)
	}
	return n, nil
}

// epochMillis normalizes provider timestamps to epoch milliseconds. Session
// bridges report seconds; anything that already looks like millis passes
// through, and zero falls back to receipt time.
func epochMillis(ts int64) int64 {
	if ts <= 0 {
		return event.Now()
	}
	if ts < 1_000_000_000_000 {
		return ts * 1000
	}
	return ts
}
