package main

import (
	"sync"
	"time"
)

// Change popisuje jednu změnu ve Store. Update je nil, pokud se změnil jen stav spojení.
type Change struct {
	Snapshot Snapshot
	Status   StatusInfo
	Update   Update
}

// Store drží Display Snapshot a stav spojení v paměti procesu.
// Nic se neukládá, po restartu (nebo explicitním reconnectu) začínáme s prázdným stavem.
type Store struct {
	// order serializuje změnu + notifikaci, posluchači tak vidí změny ve stejném pořadí.
	// mu chrání snap a status. Map watchers má vlastní zámek,
	// aby se watch/cancel dal volat i z notifikace.
	order  sync.Mutex
	mu     sync.RWMutex
	snap   Snapshot
	status StatusInfo

	watchMu  sync.Mutex
	nextID   int
	watchers map[int]func(Change)
}

func NewStore() *Store {
	return &Store{
		status:   StatusInfo{Status: StatusDisconnected},
		watchers: make(map[int]func(Change)),
	}
}

// Apply sloučí aktualizaci do snapshotu. Ostatní pole zůstávají beze změny.
func (s *Store) Apply(u Update, at time.Time) {
	s.order.Lock()
	defer s.order.Unlock()

	s.mu.Lock()
	u.applyTo(&s.snap)
	s.snap.UpdatedAt = &at
	c := Change{Snapshot: s.snap, Status: s.status, Update: u}
	s.mu.Unlock()

	s.notify(c)
}

// Reset zahodí všechny hodnoty (nové připojení = čistý stav).
func (s *Store) Reset() {
	s.order.Lock()
	defer s.order.Unlock()

	s.mu.Lock()
	s.snap = Snapshot{}
	c := Change{Snapshot: s.snap, Status: s.status}
	s.mu.Unlock()

	s.notify(c)
}

func (s *Store) SetStatus(info StatusInfo) {
	s.order.Lock()
	defer s.order.Unlock()

	s.mu.Lock()
	if s.status == info {
		s.mu.Unlock()
		return
	}
	s.status = info
	c := Change{Snapshot: s.snap, Status: s.status}
	s.mu.Unlock()

	s.notify(c)
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

func (s *Store) Status() StatusInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Watch zaregistruje posluchače změn. Posluchač nesmí blokovat.
// Vrácená funkce posluchače odregistruje (volat lze opakovaně).
func (s *Store) Watch(fn func(Change)) (cancel func()) {
	s.watchMu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = fn
	s.watchMu.Unlock()

	return func() {
		s.watchMu.Lock()
		delete(s.watchers, id)
		s.watchMu.Unlock()
	}
}

func (s *Store) notify(c Change) {
	s.watchMu.Lock()
	fns := make([]func(Change), 0, len(s.watchers))
	for _, fn := range s.watchers {
		fns = append(fns, fn)
	}
	s.watchMu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}
