// Package notify publishes a summary event over NATS after each run so other
// services (site rebuilders, dashboards) can react to new documentation.
package notify

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/docfleet/internal/foundation/errors"
	"git.home.luguber.info/inful/docfleet/internal/logfields"
)

const (
	// DefaultSubject receives run events.
	DefaultSubject = "docfleet.runs"
	// StatusBucket is the JetStream key-value bucket holding the latest event.
	StatusBucket = "docfleet_status"
	// LatestKey is the key of the latest event in StatusBucket.
	LatestKey = "latest"
)

// MissingComponent names a component without documentation.
type MissingComponent struct {
	Repository string `json:"repository"`
	Component  string `json:"component"`
}

// Event summarizes a finished run.
type Event struct {
	RunID              string             `json:"run_id"`
	Outcome            string             `json:"outcome"`
	Start              time.Time          `json:"start"`
	End                time.Time          `json:"end"`
	Repositories       int                `json:"repositories"`
	Documented         int                `json:"documented"`
	Missing            []MissingComponent `json:"missing,omitempty"`
	Added              []string           `json:"added,omitempty"`
	RolledBack         []string           `json:"rolled_back,omitempty"`
	RelocationFailures int                `json:"relocation_failures"`
	IndexPath          string             `json:"index_path,omitempty"`
}

// Notifier publishes events. It never retries; a failed publish is reported once.
type Notifier struct {
	subject string
	timeout time.Duration
	publish func(ctx context.Context, subject string, data []byte) error
	store   func(ctx context.Context, key string, data []byte) error
	close   func()
}

// Options configures Connect.
type Options struct {
	URL     string
	Subject string
	Timeout time.Duration
}

// Connect dials NATS. JetStream is used when the server offers it: events go to
// the stream capturing Subject and the latest event is kept in StatusBucket.
// Without JetStream, events are published on core NATS.
func Connect(ctx context.Context, opts Options) (*Notifier, error) {
	if opts.Subject == "" {
		opts.Subject = DefaultSubject
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}

	conn, err := nats.Connect(opts.URL, nats.Name("docfleet"), nats.Timeout(opts.Timeout))
	if err != nil {
		return nil, errors.NewError(errors.CategoryNotify, "failed to connect to NATS").
			WithCause(err).WithContext("url", opts.URL).NextRun().Build()
	}

	n := &Notifier{subject: opts.Subject, timeout: opts.Timeout, close: conn.Close}
	core := func(_ context.Context, subject string, data []byte) error {
		if err := conn.Publish(subject, data); err != nil {
			return err
		}
		return conn.FlushTimeout(opts.Timeout)
	}
	n.publish = core

	js, err := jetstream.New(conn)
	if err != nil {
		slog.Warn("JetStream unavailable, using core NATS", logfields.Error(err))
		return n, nil
	}
	n.publish = func(ctx context.Context, subject string, data []byte) error {
		_, err := js.Publish(ctx, subject, data)
		if stderrors.Is(err, jetstream.ErrNoStreamResponse) {
			return core(ctx, subject, data)
		}
		return err
	}

	kvCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()
	kv, err := js.CreateOrUpdateKeyValue(kvCtx, jetstream.KeyValueConfig{
		Bucket:      StatusBucket,
		Description: "Latest docfleet run",
		History:     1,
	})
	if err != nil {
		slog.Warn("Status bucket unavailable, publishing events only", logfields.Error(err))
	} else {
		n.store = func(ctx context.Context, key string, data []byte) error {
			_, err := kv.Put(ctx, key, data)
			return err
		}
	}

	slog.Info("NATS notifier connected", logfields.URL(opts.URL), slog.String("subject", opts.Subject))
	return n, nil
}

// Notify publishes ev and records it as the latest status.
func (n *Notifier) Notify(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return errors.NewError(errors.CategoryNotify, "failed to encode run event").WithCause(err).Build()
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	if err := n.publish(ctx, n.subject, data); err != nil {
		return errors.NewError(errors.CategoryNotify, "failed to publish run event").
			WithCause(err).
			WithContext("subject", n.subject).
			WithContext("run_id", ev.RunID).
			NextRun().
			Build()
	}
	if n.store != nil {
		if err := n.store(ctx, LatestKey, data); err != nil {
			slog.Warn("Failed to store latest run status", logfields.RunID(ev.RunID), logfields.Error(err))
		}
	}
	slog.Debug("Published run event", logfields.RunID(ev.RunID), slog.String("subject", n.subject))
	return nil
}

// Close closes the connection.
func (n *Notifier) Close() {
	if n != nil && n.close != nil {
		n.close()
	}
}

// String describes the notifier for logs.
func (n *Notifier) String() string { return fmt.Sprintf("nats(%s)", n.subject) }
