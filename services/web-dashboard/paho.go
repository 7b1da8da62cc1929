package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// PahoDialer otevírá relace přes knihovnu eclipse/paho.mqtt.golang.
type PahoDialer struct{}

type pahoSession struct {
	client mqtt.Client

	// Odběry si pamatujeme kvůli obnovení po nativním reconnectu (clean session je zapnutá).
	mu        sync.Mutex
	filters   map[string]byte
	callback  mqtt.MessageHandler
	connected bool
}

// clientID přidá k prefixu náhodnou příponu, aby se dvě instance dashboardu
// u brokeru navzájem neodpojovaly.
func clientID(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString()[:8])
}

func (PahoDialer) Dial(ctx context.Context, cfg BrokerConfig, hooks SessionHooks) (Session, error) {
	s := &pahoSession{}

	// 1. ZÁKLADNÍ NASTAVENÍ KLIENTA
	// Client ID musí být u brokeru unikátní. Kdyby se dvě instance přihlásily
	// stejným ID, broker by tu starší okamžitě odpojil (a ta by se zase připojila...).
	opts := mqtt.NewClientOptions().AddBroker(cfg.URL).SetClientID(clientID(cfg.ClientID))

	// 2. PŘIHLÁŠENÍ A TLS
	// Jméno a heslo posíláme jen tehdy, když jsou vyplněné (anonymní Mosquitto je nechce).
	// Pro ssl:// broker zapneme TLS. Starší verze než 1.2 nepovolujeme.
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	if cfg.TLS {
		opts.SetTLSConfig(&tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: cfg.InsecureSkipVerify, // jen pro self-signed brokery
		})
	}
	// 3. CHOVÁNÍ RELACE
	// CleanSession: broker si mezi připojeními nic nepamatuje, odběry po
	// reconnectu obnovujeme sami (viz resubscribe).
	opts.SetCleanSession(true)
	opts.SetConnectTimeout(cfg.ConnectTimeout)
	opts.SetAutoReconnect(cfg.AutoReconnect)
	// První připojení nezkoušíme opakovaně, chybu má vidět uživatel.
	opts.SetConnectRetry(false)

	// 4. HANDLERY ŽIVOTNÍHO CYKLU
	// Knihovna je volá ze svých goroutin. My je jen přepošleme transportu (hooks),
	// který podle nich mění stav spojení na dashboardu.
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		if hooks.OnConnectionLost != nil {
			hooks.OnConnectionLost(err)
		}
	})
	opts.SetReconnectingHandler(func(_ mqtt.Client, _ *mqtt.ClientOptions) {
		if hooks.OnReconnecting != nil {
			hooks.OnReconnecting()
		}
	})
	// OnConnect se volá po KAŽDÉM připojení, i po tom prvním.
	// První připojení ignorujeme, odběr po něm zakládá až Subscribe.
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		s.mu.Lock()
		first := !s.connected
		s.connected = true
		s.mu.Unlock()
		if first {
			return
		}
		// Handler běží v goroutině knihovny, na SUBACK čekáme mimo ni.
		go func() {
			err := s.resubscribe()
			if hooks.OnReconnected != nil {
				hooks.OnReconnected(err)
			}
		}()
	})

	// 5. PŘIPOJENÍ
	// token.Wait() by čekal bez ohledu na ctx. Proto čekáme na token.Done()
	// a zároveň na zrušení ctx (timeout požadavku, vypínání serveru).
	client := mqtt.NewClient(opts)
	s.client = client

	token := client.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		client.Disconnect(0)
		return nil, ctx.Err()
	}
	if err := token.Error(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *pahoSession) Subscribe(filters []string, onMessage func(topic string, payload []byte)) error {
	m := make(map[string]byte, len(filters))
	for _, f := range filters {
		m[f] = 0 // QoS 0, stejně jako ostatní služby
	}
	cb := func(_ mqtt.Client, msg mqtt.Message) {
		onMessage(msg.Topic(), msg.Payload())
	}

	s.mu.Lock()
	s.filters = m
	s.callback = cb
	s.mu.Unlock()

	return s.resubscribe()
}

func (s *pahoSession) resubscribe() error {
	s.mu.Lock()
	filters, cb := s.filters, s.callback
	s.mu.Unlock()
	if len(filters) == 0 {
		return nil
	}

	token := s.client.SubscribeMultiple(filters, cb)
	token.Wait()
	if err := token.Error(); err != nil {
		return err
	}
	// Broker může jednotlivé filtry odmítnout (návratový kód 0x80) bez chyby tokenu.
	if st, ok := token.(*mqtt.SubscribeToken); ok {
		for topic, code := range st.Result() {
			if code == 0x80 {
				return fmt.Errorf("broker odmítl odběr %s", topic)
			}
		}
	}
	return nil
}

func (s *pahoSession) Publish(topic string, payload []byte) {
	// Fire-and-forget, Wait() nevoláme.
	s.client.Publish(topic, 0, false, payload)
}

func (s *pahoSession) Close() {
	// Odpojení s timeoutem 250ms
	s.client.Disconnect(250)
}
