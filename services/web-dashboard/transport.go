package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// BrokerConfig je vše, co transport potřebuje k otevření relace.
// Přihlašovací údaje se jen předávají knihovně, nic s nimi neděláme.
type BrokerConfig struct {
	URL                string
	ClientID           string
	Username           string
	Password           string
	TLS                bool
	InsecureSkipVerify bool
	AutoReconnect      bool
	ConnectTimeout     time.Duration
}

// SessionHooks jsou události životního cyklu relace hlášené knihovnou.
type SessionHooks struct {
	OnConnectionLost func(err error)
	OnReconnecting   func()
	// OnReconnected přichází po nativním reconnectu knihovny.
	// err je chyba obnovení odběrů (nil = v pořádku).
	OnReconnected func(err error)
}

// Session je jedna otevřená relace k brokeru.
type Session interface {
	Subscribe(filters []string, onMessage func(topic string, payload []byte)) error
	Publish(topic string, payload []byte)
	Close()
}

// Dialer otevírá relace. V produkci PahoDialer, v testech fake.
type Dialer interface {
	Dial(ctx context.Context, cfg BrokerConfig, hooks SessionHooks) (Session, error)
}

type MessageHandler func(Message)

type StatusHandler func(StatusInfo)

// ErrSubscribe: relace se otevřela, ale broker odmítl odběr.
var ErrSubscribe = errors.New("odběr topiců selhal")

// Transport obaluje MQTT klienta: drží jednu relaci, odebírá pevnou sadu topiců
// a rozesílá zprávy všem registrovaným handlerům.
type Transport struct {
	dialer  Dialer
	cfg     BrokerConfig
	filters []string
	logger  *slog.Logger

	// mu serializuje Connect/Disconnect.
	mu sync.Mutex
	// session a gen se čtou i z callbacků knihovny, proto atomicky.
	// gen se zvýší s každou novou nebo zavřenou relací; callback staré relace pak nic nedoručí.
	session atomic.Pointer[Session]
	gen     atomic.Uint64

	// deliverMu drží každé doručení zprávy (čtecí zámek). closeLocked si po zvýšení gen
	// vezme zápisový zámek, takže po Disconnect už žádná zpráva staré relace neběží.
	// Handlery zpráv proto nesmí volat Connect ani Disconnect.
	deliverMu sync.RWMutex

	subMu      sync.RWMutex
	nextSub    int
	msgSubs    map[int]MessageHandler
	statusSubs map[int]StatusHandler

	stMu   sync.RWMutex
	status StatusInfo
}

func NewTransport(dialer Dialer, cfg BrokerConfig, filters []string, logger *slog.Logger) *Transport {
	return &Transport{
		dialer:     dialer,
		cfg:        cfg,
		filters:    append([]string(nil), filters...),
		logger:     logger,
		msgSubs:    make(map[int]MessageHandler),
		statusSubs: make(map[int]StatusHandler),
		status:     StatusInfo{Status: StatusDisconnected},
	}
}

// Connect otevře relaci a přihlásí odběr. Běžící relaci nejdřív zavře,
// takže po dvou voláních existuje právě jedna sada odběrů.
func (t *Transport) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	// 1. ÚKLID STARÉ RELACE
	// Dvě živé relace = každá zpráva by se doručila dvakrát.
	if t.session.Load() != nil {
		t.logger.Info("Ukončuji předchozí MQTT relaci před novým připojením")
		t.closeLocked()
	}

	// 2. NOVÁ GENERACE
	// Každá relace dostane své číslo. Callbacky si ho pamatují (closure) a než cokoliv
	// udělají, ověří přes current(), že jejich relace je pořád ta aktuální.
	// Zpožděný callback zavřené relace tak nic nerozbije.
	gen := t.gen.Add(1)
	current := func() bool { return t.gen.Load() == gen }

	t.setStatus(StatusInfo{Status: StatusConnecting})

	// 3. HOOKY PRO KNIHOVNU (ztráta spojení, nativní reconnect)
	hooks := SessionHooks{
		OnConnectionLost: func(err error) {
			if !current() {
				return
			}
			t.logger.Warn("Spojení s brokerem ztraceno", "error", err)
			t.setStatus(StatusInfo{Status: StatusDisconnected, Error: errText(err)})
		},
		OnReconnecting: func() {
			if current() {
				t.setStatus(StatusInfo{Status: StatusConnecting})
			}
		},
		OnReconnected: func(err error) {
			if !current() {
				return
			}
			if err != nil {
				t.logger.Error("Obnovení odběru po reconnectu selhalo", "error", err)
				t.setStatus(StatusInfo{Status: StatusDisconnected, Error: errText(err)})
				return
			}
			t.logger.Info("Znovu připojeno k MQTT", "broker", t.cfg.URL)
			t.setStatus(StatusInfo{Status: StatusConnected})
		},
	}

	// 4. PŘIPOJENÍ K BROKERU
	// Chyba není fatální: stav "disconnected" i s textem chyby uvidí uživatel na dashboardu.
	sess, err := t.dialer.Dial(ctx, t.cfg, hooks)
	if err != nil {
		t.setStatus(StatusInfo{Status: StatusDisconnected, Error: errText(err)})
		return fmt.Errorf("připojení k brokeru %s selhalo: %w", t.cfg.URL, err)
	}

	// 5. ODBĚR TOPICŮ
	// onMessage běží v goroutině knihovny. Čtecí zámek deliverMu drží po celé
	// doručení, aby na něj closeLocked mohl počkat.
	onMessage := func(topic string, payload []byte) {
		t.deliverMu.RLock()
		defer t.deliverMu.RUnlock()
		if !current() {
			return
		}
		t.dispatch(Message{Topic: topic, Payload: payload})
	}

	if err := sess.Subscribe(t.filters, onMessage); err != nil {
		t.gen.Add(1)
		sess.Close()
		t.setStatus(StatusInfo{Status: StatusDisconnected, Error: errText(err)})
		return fmt.Errorf("%w: %w", ErrSubscribe, err)
	}

	// 6. HOTOVO: relaci zveřejníme (Publish ji čte atomicky) a ohlásíme stav.
	t.session.Store(&sess)
	t.setStatus(StatusInfo{Status: StatusConnected})
	t.logger.Info("Připojeno k MQTT", "broker", t.cfg.URL, "topics", t.filters)
	return nil
}

// Disconnect zavře relaci. Pokud žádná není, nedělá nic.
func (t *Transport) Disconnect() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.session.Load() == nil {
		return
	}
	t.closeLocked()
	t.setStatus(StatusInfo{Status: StatusDisconnected})
	t.logger.Info("Odpojeno od MQTT")
}

func (t *Transport) closeLocked() {
	t.gen.Add(1)
	// Počkáme, až doběhnou zprávy, které prošly kontrolou gen ještě před zvýšením.
	t.deliverMu.Lock()
	t.deliverMu.Unlock()
	if sess := t.session.Swap(nil); sess != nil {
		(*sess).Close()
	}
}

// Publish odešle zprávu bez čekání na potvrzení. Bez relace se zpráva zahodí.
// Nesmí logovat: volá ho i MqttLogWriter.
func (t *Transport) Publish(topic string, payload []byte) {
	if sess := t.session.Load(); sess != nil {
		(*sess).Publish(topic, payload)
	}
}

// Subscribe přidá handler zpráv. Handlerů může být libovolně mnoho.
func (t *Transport) Subscribe(h MessageHandler) (cancel func()) {
	t.subMu.Lock()
	id := t.nextSub
	t.nextSub++
	t.msgSubs[id] = h
	t.subMu.Unlock()

	return func() {
		t.subMu.Lock()
		delete(t.msgSubs, id)
		t.subMu.Unlock()
	}
}

// OnStatus přidá handler změn stavu spojení.
func (t *Transport) OnStatus(h StatusHandler) (cancel func()) {
	t.subMu.Lock()
	id := t.nextSub
	t.nextSub++
	t.statusSubs[id] = h
	t.subMu.Unlock()

	return func() {
		t.subMu.Lock()
		delete(t.statusSubs, id)
		t.subMu.Unlock()
	}
}

func (t *Transport) Status() StatusInfo {
	t.stMu.RLock()
	defer t.stMu.RUnlock()
	return t.status
}

func (t *Transport) dispatch(msg Message) {
	t.subMu.RLock()
	handlers := make([]MessageHandler, 0, len(t.msgSubs))
	for _, h := range t.msgSubs {
		handlers = append(handlers, h)
	}
	t.subMu.RUnlock()

	for _, h := range handlers {
		h(msg)
	}
}

func (t *Transport) setStatus(info StatusInfo) {
	t.stMu.Lock()
	t.status = info
	t.stMu.Unlock()

	t.subMu.RLock()
	handlers := make([]StatusHandler, 0, len(t.statusSubs))
	for _, h := range t.statusSubs {
		handlers = append(handlers, h)
	}
	t.subMu.RUnlock()

	for _, h := range handlers {
		h(info)
	}
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
