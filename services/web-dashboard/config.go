package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config drží veškeré nastavení, které aplikace potřebuje k běhu.
// Pořadí priorit: ENV proměnná > YAML soubor (CONFIG_FILE) > výchozí hodnota v kódu.
// Stejný image tak poběží na dev i prod jen se změnou ENV.
type Config struct {
	// MQTT
	MQTTBroker         string        `yaml:"mqtt_broker"` // např. tcp://mosquitto:1883 nebo ssl://host:8883
	MQTTClientID       string        `yaml:"mqtt_client_id"`
	MQTTUsername       string        `yaml:"mqtt_username"`
	MQTTPassword       string        `yaml:"mqtt_password"`
	MQTTTLS            bool          `yaml:"mqtt_tls"`
	MQTTTLSInsecure    bool          `yaml:"mqtt_tls_insecure"`
	MQTTAutoReconnect  bool          `yaml:"mqtt_auto_reconnect"`
	MQTTConnectTimeout time.Duration `yaml:"mqtt_connect_timeout"`

	// TopicRoot je první segment všech topiců stanice ("weather").
	TopicRoot string `yaml:"topic_root"`
	// Layout: "single" (jedna metrika na kartu) nebo "multi" (karty po senzorech).
	Layout string `yaml:"layout"`

	HTTPPort string `yaml:"http_port"`

	// ValkeyAddr: host:port. Prázdné = zrcadlení snapshotu vypnuto.
	ValkeyAddr  string        `yaml:"valkey_addr"`
	SnapshotTTL time.Duration `yaml:"snapshot_ttl"`

	// DisplayTZ je časové pásmo pro zobrazené časy (IANA název, např. "Europe/Prague").
	DisplayTZ string `yaml:"display_tz"`

	LogLevel  string `yaml:"log_level"`
	LogToMQTT bool   `yaml:"log_to_mqtt"`
}

func defaultConfig() Config {
	return Config{
		MQTTBroker:         "tcp://mosquitto:1883",
		MQTTClientID:       "web-dashboard",
		MQTTAutoReconnect:  true,
		MQTTConnectTimeout: 5 * time.Second,
		TopicRoot:          "weather",
		Layout:             LayoutMulti,
		HTTPPort:           "3000",
		SnapshotTTL:        24 * time.Hour,
		DisplayTZ:          "Local",
		LogLevel:           "info",
	}
}

// LoadConfig načte konfiguraci. Chybu vrací jen pro nečitelný soubor nebo neplatné hodnoty.
func LoadConfig() (Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("nelze načíst konfigurační soubor: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("neplatný YAML v %s: %w", path, err)
		}
	}

	cfg.MQTTBroker = getEnv("MQTT_BROKER", cfg.MQTTBroker)
	cfg.MQTTClientID = getEnv("MQTT_CLIENT_ID", cfg.MQTTClientID)
	cfg.MQTTUsername = getEnv("MQTT_USERNAME", cfg.MQTTUsername)
	cfg.MQTTPassword = getEnv("MQTT_PASSWORD", cfg.MQTTPassword)
	cfg.MQTTTLS = getBool("MQTT_TLS", cfg.MQTTTLS)
	cfg.MQTTTLSInsecure = getBool("MQTT_TLS_INSECURE", cfg.MQTTTLSInsecure)
	cfg.MQTTAutoReconnect = getBool("MQTT_AUTO_RECONNECT", cfg.MQTTAutoReconnect)
	cfg.MQTTConnectTimeout = getDuration("MQTT_CONNECT_TIMEOUT", cfg.MQTTConnectTimeout)

	cfg.TopicRoot = getEnv("TOPIC_ROOT", cfg.TopicRoot)
	cfg.Layout = getEnv("DASHBOARD_LAYOUT", cfg.Layout)
	cfg.HTTPPort = getEnv("HTTP_PORT", cfg.HTTPPort)

	cfg.ValkeyAddr = getEnv("VALKEY_ADDR", cfg.ValkeyAddr)
	cfg.SnapshotTTL = getDuration("SNAPSHOT_TTL", cfg.SnapshotTTL)
	cfg.DisplayTZ = getEnv("DISPLAY_TZ", cfg.DisplayTZ)

	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogToMQTT = getBool("LOG_TO_MQTT", cfg.LogToMQTT)

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.Layout != LayoutSingle && c.Layout != LayoutMulti {
		return fmt.Errorf("neplatný DASHBOARD_LAYOUT %q", c.Layout)
	}
	if strings.Trim(c.TopicRoot, "/") == "" {
		return fmt.Errorf("TOPIC_ROOT nesmí být prázdný")
	}
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER nesmí být prázdný")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// BrokerConfig vybere z konfigurace část pro transport.
func (c Config) BrokerConfig() BrokerConfig {
	return BrokerConfig{
		URL:                c.MQTTBroker,
		ClientID:           c.MQTTClientID,
		Username:           c.MQTTUsername,
		Password:           c.MQTTPassword,
		TLS:                c.MQTTTLS,
		InsecureSkipVerify: c.MQTTTLSInsecure,
		AutoReconnect:      c.MQTTAutoReconnect,
		ConnectTimeout:     c.MQTTConnectTimeout,
	}
}

func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.DisplayTZ)
	if err != nil {
		return nil, fmt.Errorf("neplatné DISPLAY_TZ %q: %w", c.DisplayTZ, err)
	}
	return loc, nil
}

func (c Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// LogValue zajistí, že se heslo nikdy nedostane do logu ("config", cfg).
func (c Config) LogValue() slog.Value {
	password := ""
	if c.MQTTPassword != "" {
		password = "***"
	}
	return slog.GroupValue(
		slog.String("mqtt_broker", c.MQTTBroker),
		slog.String("mqtt_client_id", c.MQTTClientID),
		slog.String("mqtt_username", c.MQTTUsername),
		slog.String("mqtt_password", password),
		slog.Bool("mqtt_tls", c.MQTTTLS),
		slog.Bool("mqtt_auto_reconnect", c.MQTTAutoReconnect),
		slog.String("topic_root", c.TopicRoot),
		slog.String("layout", c.Layout),
		slog.String("http_port", c.HTTPPort),
		slog.String("valkey_addr", c.ValkeyAddr),
		slog.String("display_tz", c.DisplayTZ),
		slog.String("log_level", c.LogLevel),
		slog.Bool("log_to_mqtt", c.LogToMQTT),
	)
}

// getEnv je pomocná funkce.
// Go standardní knihovna `os.Getenv` vrací prázdný string, pokud proměnná neexistuje.
// My ale potřebujeme fallback (hodnotu ze souboru nebo default), proto tento wrapper.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(getEnv(key, strconv.FormatBool(fallback)))
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, fallback.String()))
	if err != nil {
		return fallback
	}
	return d
}
