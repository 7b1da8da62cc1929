package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// hotStore je podmnožina redis.Client, kterou zrcadlo potřebuje.
type hotStore interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

type mirrorEntry struct {
	key  string
	data []byte
}

// SnapshotMirror zapisuje poslední záznam každé skupiny do Valkey ("Hot Storage").
// Jen zapisuje, dashboard z Valkey nikdy nečte, stav po restartu se tedy nepřenáší.
type SnapshotMirror struct {
	rdb     hotStore
	ttl     time.Duration
	logger  *slog.Logger
	metrics *Metrics
	queue   chan mirrorEntry
}

func NewSnapshotMirror(rdb hotStore, ttl time.Duration, metrics *Metrics, logger *slog.Logger) *SnapshotMirror {
	return &SnapshotMirror{
		rdb:     rdb,
		ttl:     ttl,
		logger:  logger,
		metrics: metrics,
		queue:   make(chan mirrorEntry, 64),
	}
}

// mirrorKey: "weather:last:{group}" (např. "weather:last:bme680")
func mirrorKey(g GroupID) string {
	return fmt.Sprintf("weather:last:%s", g)
}

// OnChange se registruje jako posluchač Store. Neblokuje: při plné frontě zápis zahodí.
func (m *SnapshotMirror) OnChange(c Change) {
	if c.Update == nil {
		return
	}
	g := c.Update.Group()
	record, ok := c.Snapshot.Group(g)
	if !ok {
		return
	}
	data, err := json.Marshal(record)
	if err != nil {
		m.logger.Error("Nelze serializovat záznam pro Valkey", "group", g, "error", err)
		return
	}

	select {
	case m.queue <- mirrorEntry{key: mirrorKey(g), data: data}:
	default:
		m.metrics.MirrorDropped()
		m.logger.Warn("Fronta zrcadla plná, zápis zahozen", "group", g)
	}
}

// Run zapisuje frontu do Valkey, dokud se nezruší ctx.
func (m *SnapshotMirror) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-m.queue:
			setCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			err := m.rdb.Set(setCtx, e.key, e.data, m.ttl).Err()
			cancel()
			if err != nil {
				// Chyba Valkey není kritická, live view běží dál.
				m.logger.Error("Chyba update Valkey", "key", e.key, "error", err)
			}
		}
	}
}
