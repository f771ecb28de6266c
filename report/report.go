// Package report publishes installation outcomes to the stats server.
//
// Reporting is best effort: it never blocks the caller and its failures are
// only visible in debug logs.
package report

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aexvir/quickinstall/transfer"
)

// DefaultTimeout bounds how long a single report may keep running in the background.
const DefaultTimeout = 30 * time.Second

// Event is a single installation outcome.
type Event struct {
	Crate   string
	Version string
	Target  string
	Status  string
}

// Reporter sends events to a stats endpoint.
type Reporter struct {
	client   transfer.Client
	endpoint string
	agent    string
	timeout  time.Duration
}

// New creates a reporter posting events to endpoint, identifying the client as agent.
func New(client transfer.Client, endpoint, agent string) *Reporter {
	return &Reporter{
		client:   client,
		endpoint: endpoint,
		agent:    agent,
		timeout:  DefaultTimeout,
	}
}

// Disabled returns a reporter that drops every event.
func Disabled() *Reporter {
	return &Reporter{}
}

// URL renders the request url for ev.
// Fields are always encoded in the same order.
func (r *Reporter) URL(ev Event) string {
	fields := []struct{ key, value string }{
		{"crate", ev.Crate},
		{"version", ev.Version},
		{"target", ev.Target},
		{"agent", r.agent},
		{"status", ev.Status},
	}

	var bld strings.Builder
	bld.WriteString(r.endpoint)
	for i, field := range fields {
		if i == 0 {
			bld.WriteString("?")
		} else {
			bld.WriteString("&")
		}
		bld.WriteString(url.QueryEscape(field.key) + "=" + url.QueryEscape(field.value))
	}

	return bld.String()
}

// Report sends ev in the background and returns immediately.
// The returned channel is closed once the attempt is over; nothing needs to wait on it.
// The request outlives the cancellation of ctx, bounded by the reporter timeout.
func (r *Reporter) Report(ctx context.Context, ev Event) <-chan struct{} {
	done := make(chan struct{})

	if r == nil || r.client == nil {
		close(done)
		return done
	}

	logger := zerolog.Ctx(ctx).With().Str("component", "report").Logger()
	target := r.URL(ev)

	go func() {
		defer close(done)

		bgctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()

		if err := r.client.Post(bgctx, target); err != nil {
			logger.Debug().Err(err).Str("url", target).Msg("failed to report installation outcome")
			return
		}
		logger.Debug().Str("url", target).Msg("reported installation outcome")
	}()

	return done
}
