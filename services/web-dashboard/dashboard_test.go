package main

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboard_MessagesReachSnapshot(t *testing.T) {
	dash, dialer := newTestDashboard(t, LayoutMulti)
	require.NoError(t, dash.Connect(context.Background()))

	dialer.last().deliver("weather/bme280/humidity", "48.25")

	assert.Equal(t, f64(48.25), dash.store.Snapshot().BME280.Humidity)
	assert.Equal(t, StatusConnected, dash.Status().Status)
	assert.Equal(t, float64(1), testutil.ToFloat64(dash.metrics.connection.WithLabelValues("connected")))
	assert.Equal(t, float64(0), testutil.ToFloat64(dash.metrics.connection.WithLabelValues("disconnected")))
}

func TestDashboard_ConnectResetsSnapshot(t *testing.T) {
	dash, dialer := newTestDashboard(t, LayoutMulti)
	require.NoError(t, dash.Connect(context.Background()))
	dialer.last().deliver("weather/lightning/strike", "1")
	require.NotNil(t, dash.store.Snapshot().LastStrike)

	require.NoError(t, dash.Connect(context.Background()))

	assert.Equal(t, Snapshot{}, dash.store.Snapshot())
	assert.Len(t, dialer.open(), 1)
}

func TestDashboard_FailedConnectShowsError(t *testing.T) {
	dash, dialer := newTestDashboard(t, LayoutSingle)
	dialer.fail(errors.New("no route to host"))

	err := dash.Connect(context.Background())

	require.Error(t, err)
	view := dash.View()
	assert.Equal(t, StatusDisconnected, view.Status)
	assert.Equal(t, "Disconnected", view.StatusText)
	assert.Equal(t, "no route to host", view.Error)
}

func TestDashboard_CloseUnsubscribes(t *testing.T) {
	dash, dialer := newTestDashboard(t, LayoutSingle)
	require.NoError(t, dash.Connect(context.Background()))
	sess := dialer.last()

	dash.Close()
	dash.Close()

	assert.True(t, sess.isClosed())
	assert.Empty(t, dash.transport.msgSubs)
	assert.Empty(t, dash.transport.statusSubs)
}

func TestDashboard_ViewUsesClock(t *testing.T) {
	dash, _ := newTestDashboard(t, LayoutSingle)

	view := dash.View()

	assert.Equal(t, "14:30:00", view.Clock)
	assert.Equal(t, LayoutSingle, view.Layout)
	assert.Len(t, view.Cards, 6)
}

func TestDashboard_ConcurrentConnectsLeaveOneCleanSession(t *testing.T) {
	dash, dialer := newTestDashboard(t, LayoutMulti)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				if err := dash.Connect(context.Background()); err != nil {
					t.Errorf("Connect: %v", err)
					return
				}
				dialer.last().deliver("weather/bme280/humidity", "50")
			}
		}()
	}
	wg.Wait()

	open := dialer.open()
	require.Len(t, open, 1)
	assert.Same(t, dialer.last(), open[0])

	// Po posledním Connect nesmí do snapshotu propadnout nic ze zavřených relací.
	require.NoError(t, dash.Connect(context.Background()))
	dialer.mu.Lock()
	sessions := append([]*fakeSession(nil), dialer.sessions...)
	dialer.mu.Unlock()
	for _, s := range sessions[:len(sessions)-1] {
		s.deliver("weather/bme280/pressure", "990")
	}
	assert.Equal(t, Snapshot{}, dash.store.Snapshot())
}

func TestDashboard_ConnectAfterClose(t *testing.T) {
	dash, dialer := newTestDashboard(t, LayoutSingle)
	dash.Close()

	err := dash.Connect(context.Background())

	assert.ErrorIs(t, err, ErrDashboardClosed)
	assert.Zero(t, dialer.dials())
}
