package notify

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docfleet/internal/foundation/errors"
)

type captured struct {
	subject string
	data    []byte
}

func newTestNotifier(pubErr, storeErr error) (*Notifier, *[]captured, *map[string][]byte) {
	var pubs []captured
	stored := map[string][]byte{}
	n := &Notifier{
		subject: DefaultSubject,
		timeout: time.Second,
		publish: func(_ context.Context, subject string, data []byte) error {
			if pubErr != nil {
				return pubErr
			}
			pubs = append(pubs, captured{subject, data})
			return nil
		},
		store: func(_ context.Context, key string, data []byte) error {
			if storeErr != nil {
				return storeErr
			}
			stored[key] = data
			return nil
		},
	}
	return n, &pubs, &stored
}

func TestNotifyPublishesAndStores(t *testing.T) {
	n, pubs, stored := newTestNotifier(nil, nil)
	ev := Event{
		RunID: "r1", Outcome: "warning", Repositories: 1, Documented: 1,
		Missing: []MissingComponent{{Repository: "alice/foo", Component: "foo-cli"}},
	}
	require.NoError(t, n.Notify(context.Background(), ev))

	require.Len(t, *pubs, 1)
	assert.Equal(t, DefaultSubject, (*pubs)[0].subject)

	var got Event
	require.NoError(t, json.Unmarshal((*pubs)[0].data, &got))
	assert.Equal(t, "r1", got.RunID)
	assert.Equal(t, []MissingComponent{{Repository: "alice/foo", Component: "foo-cli"}}, got.Missing)
	assert.JSONEq(t, string((*pubs)[0].data), string((*stored)[LatestKey]))
}

func TestNotifyPublishFailure(t *testing.T) {
	n, _, stored := newTestNotifier(stderrors.New("no responders"), nil)
	err := n.Notify(context.Background(), Event{RunID: "r1"})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryNotify))
	assert.Empty(t, *stored)
}

func TestNotifyStoreFailureIsNotAnError(t *testing.T) {
	n, pubs, _ := newTestNotifier(nil, stderrors.New("bucket gone"))
	require.NoError(t, n.Notify(context.Background(), Event{RunID: "r1"}))
	assert.Len(t, *pubs, 1)
}

func TestConnectFailure(t *testing.T) {
	_, err := Connect(context.Background(), Options{URL: "nats://127.0.0.1:1", Timeout: 200 * time.Millisecond})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryNotify))
}

func TestCloseNil(t *testing.T) {
	var n *Notifier
	assert.NotPanics(t, n.Close)
}
