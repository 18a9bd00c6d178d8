package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/muurk/wifiman/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openJournal(t *testing.T, limit int) (*Journal, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.db")
	j, err := Open(path, limit)
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j, path
}

func event(name string, payload map[string]any) events.Event {
	return events.Event{ID: uuid.New(), Name: name, Payload: payload, Time: time.Now().UTC()}
}

func TestRecentNewestFirst(t *testing.T) {
	j, _ := openJournal(t, 10)

	require.NoError(t, j.Notify(event(events.ConnectionFailed, map[string]any{"attempted_networks": []any{"HomeNetwork"}})))
	require.NoError(t, j.Notify(event(events.APStarted, map[string]any{"essid": "Micropython-Dev"})))
	require.NoError(t, j.Notify(event(events.Connected, map[string]any{"ssid": "HomeNetwork", "ip": "192.168.4.20"})))

	got, err := j.Recent(0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, events.Connected, got[0].Name)
	assert.Equal(t, events.APStarted, got[1].Name)
	assert.Equal(t, events.ConnectionFailed, got[2].Name)
	assert.Equal(t, "HomeNetwork", got[0].Payload["ssid"])

	two, err := j.Recent(2)
	require.NoError(t, err)
	assert.Len(t, two, 2)
}

func TestLimitDropsOldest(t *testing.T) {
	j, _ := openJournal(t, 3)

	for i := 0; i < 5; i++ {
		require.NoError(t, j.Notify(event(events.Disconnected, map[string]any{"n": i})))
	}

	n, err := j.Len()
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	got, err := j.Recent(0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	// JSON numbers come back as float64.
	assert.EqualValues(t, 4, got[0].Payload["n"])
	assert.EqualValues(t, 2, got[2].Payload["n"])
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	j, err := Open(path, 0)
	require.NoError(t, err)
	ev := event(events.Connected, map[string]any{"ssid": "Cabin"})
	require.NoError(t, j.Notify(ev))
	require.NoError(t, j.Close())

	j, err = Open(path, 0)
	require.NoError(t, err)
	defer j.Close()

	got, err := j.Recent(1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ev.ID, got[0].ID)
	assert.True(t, ev.Time.Equal(got[0].Time))
}

func TestJournalAsBusObserver(t *testing.T) {
	j, _ := openJournal(t, 0)
	bus := events.NewBus()
	bus.Register(j)

	bus.Dispatch(events.Disconnected, nil)

	got, err := j.Recent(0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, events.Disconnected, got[0].Name)
}
