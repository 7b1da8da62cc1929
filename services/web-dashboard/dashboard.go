package main

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrDashboardClosed: Connect po Close už novou relaci neotevře.
var ErrDashboardClosed = errors.New("dashboard je zavřený")

// Dashboard vlastní transport, store a reconciler. Nic z toho není globální,
// vše se předává konstruktorem (v testech s falešným Dialerem).
type Dashboard struct {
	layout    Layout
	store     *Store
	transport *Transport
	metrics   *Metrics
	loc       *time.Location
	logger    *slog.Logger
	now       func() time.Time

	// connMu serializuje Connect a Close: Disconnect, Reset a Connect
	// proběhnou vždy jako jeden celek.
	connMu    sync.Mutex
	closed    bool
	closeOnce sync.Once
	cancels   []func()
}

func NewDashboard(layout Layout, transport *Transport, store *Store, metrics *Metrics, loc *time.Location, logger *slog.Logger) *Dashboard {
	d := &Dashboard{
		layout:    layout,
		store:     store,
		transport: transport,
		metrics:   metrics,
		loc:       loc,
		logger:    logger,
		now:       time.Now,
	}

	rec := NewReconciler(layout, store, metrics, logger)
	d.cancels = append(d.cancels,
		transport.Subscribe(rec.HandleMessage),
		transport.OnStatus(func(info StatusInfo) {
			store.SetStatus(info)
			metrics.SetConnectionState(info.Status)
		}),
	)
	return d
}

// Connect naváže novou relaci s prázdným snapshotem.
// Starou relaci zavře dřív, než snapshot vynuluje, aby do nového stavu nic nepropadlo.
func (d *Dashboard) Connect(ctx context.Context) error {
	d.connMu.Lock()
	defer d.connMu.Unlock()

	if d.closed {
		return ErrDashboardClosed
	}
	d.transport.Disconnect()
	d.store.Reset()
	return d.transport.Connect(ctx)
}

// Close zavře relaci a odregistruje handlery. Volat lze opakovaně.
func (d *Dashboard) Close() {
	d.closeOnce.Do(func() {
		d.connMu.Lock()
		defer d.connMu.Unlock()

		d.closed = true
		d.transport.Disconnect()
		for _, cancel := range d.cancels {
			cancel()
		}
	})
}

// View vykreslí aktuální stav.
func (d *Dashboard) View() View {
	return Render(d.layout, d.store.Snapshot(), d.store.Status(), d.now(), d.loc)
}

func (d *Dashboard) Watch(fn func(Change)) (cancel func()) {
	return d.store.Watch(fn)
}

func (d *Dashboard) Status() StatusInfo {
	return d.store.Status()
}
