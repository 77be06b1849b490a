package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DatabaseConfig holds PostgreSQL connection parameters, shared by every
// process that opens a storage.DB.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`

	MaxConns          int32  `yaml:"max_conns"`
	MinConns          int32  `yaml:"min_conns"`
	MaxConnLifetime   string `yaml:"max_conn_lifetime"`
	MaxConnIdleTime   string `yaml:"max_conn_idle_time"`
	HealthCheckPeriod string `yaml:"health_check_period"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	base := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)

	var params []string
	if d.MaxConns > 0 {
		params = append(params, fmt.Sprintf("pool_max_conns=%d", d.MaxConns))
	}
	if d.MinConns > 0 {
		params = append(params, fmt.Sprintf("pool_min_conns=%d", d.MinConns))
	}
	if d.MaxConnLifetime != "" {
		params = append(params, fmt.Sprintf("pool_max_conn_lifetime=%s", d.MaxConnLifetime))
	}
	if d.MaxConnIdleTime != "" {
		params = append(params, fmt.Sprintf("pool_max_conn_idle_time=%s", d.MaxConnIdleTime))
	}
	if d.HealthCheckPeriod != "" {
		params = append(params, fmt.Sprintf("pool_health_check_period=%s", d.HealthCheckPeriod))
	}

	if len(params) > 0 {
		return base + "&" + strings.Join(params, "&")
	}
	return base
}

func defaultDatabase() DatabaseConfig {
	return DatabaseConfig{
		Host: "127.0.0.1", Port: 5432,
		User: "worldserver", Password: "worldserver", DBName: "worldserver",
		SSLMode: "disable",
	}
}

// CharacterRules holds the character-creation configuration surface
// (char_* keys).
type CharacterRules struct {
	NumHairStyles   int              `yaml:"num_hair_styles"`
	NumHairColors   int              `yaml:"num_hair_colors"`
	NumGenders      int              `yaml:"num_genders"`
	MinNameLength   int              `yaml:"min_name_length"`
	MaxNameLength   int              `yaml:"max_name_length"`
	StartMap        int16            `yaml:"start_map"`
	StartX          int16            `yaml:"start_x"`
	StartY          int16            `yaml:"start_y"`
	MaxCharacters   int              `yaml:"max_characters"`
	StartingPoints  float64          `yaml:"starting_points"`
	AttrMin         float64          `yaml:"attr_min"`
	AttrMax         float64          `yaml:"attr_max"`
	ModifiableAttrs []int16          `yaml:"modifiable_attrs"`
	DefaultAttrs    map[int16]float64 `yaml:"default_attrs"`
}

func defaultCharacterRules() CharacterRules {
	return CharacterRules{
		NumHairStyles: 5, NumHairColors: 4, NumGenders: 2,
		MinNameLength: 3, MaxNameLength: 16,
		StartMap: 1, StartX: 0, StartY: 0,
		MaxCharacters:   3,
		StartingPoints:  60,
		AttrMin:         1,
		AttrMax:         20,
		ModifiableAttrs: []int16{1, 2, 3},
		DefaultAttrs:    map[int16]float64{1: 20, 2: 20, 3: 20},
	}
}

// AccountServer holds all configuration for the account endpoint process.
type AccountServer struct {
	BindAddress string `yaml:"bind_address"`
	Port        int    `yaml:"port"` // net_accountListenToClientPort

	GSListenHost string `yaml:"gs_listen_host"`
	GSListenPort int    `yaml:"gs_listen_port"`

	Database DatabaseConfig `yaml:"database"`
	LogLevel string         `yaml:"log_level"`

	NetPassword string `yaml:"net_password"` // shared secret with game servers
	MaxClients  int    `yaml:"max_clients"`  // net_maxClients

	ExpectedItemDBVersion int32 `yaml:"expected_item_db_version"`

	DefaultUpdateHost string `yaml:"default_update_host"`
	ClientDataURL     string `yaml:"client_data_url"`

	ChatAddress string `yaml:"chat_address"` // advertised to clients in CharSelect's handoff
	ChatPort    int16  `yaml:"chat_port"`

	AllowRegister       bool   `yaml:"allow_register"`
	DenyRegisterReason  string `yaml:"deny_register_reason"`
	CaptchaURL          string `yaml:"captcha_url"`

	Character CharacterRules `yaml:"character"`

	MailMaxLetters     int `yaml:"mail_max_letters"`
	MailMaxAttachments int `yaml:"mail_max_attachments"`

	CommandDefaultMuteLength int `yaml:"command_default_mute_length"`

	LoginMinInterval string `yaml:"login_min_interval"` // duration, rate limit spacing

	// MapOwners declares which game server name owns each map id. On
	// REGISTER, every map whose declared owner matches the registering
	// name is activated against it (spec.md §4.4 step 3).
	MapOwners map[int16]string `yaml:"map_owners"`
}

// DefaultAccountServer returns an AccountServer config with sensible defaults.
func DefaultAccountServer() AccountServer {
	return AccountServer{
		BindAddress:        "0.0.0.0",
		Port:               2106,
		GSListenHost:       "0.0.0.0",
		GSListenPort:       9014,
		LogLevel:           "info",
		NetPassword:           "change-me",
		MaxClients:            2000,
		ExpectedItemDBVersion: 1,
		DefaultUpdateHost:  "",
		ClientDataURL:      "",
		ChatAddress:        "",
		ChatPort:           2108,
		AllowRegister:      true,
		DenyRegisterReason: "",
		Character:          defaultCharacterRules(),
		MailMaxLetters:     100,
		MailMaxAttachments: 8,
		CommandDefaultMuteLength: 600,
		LoginMinInterval:   "1s",
		MapOwners:          map[int16]string{1: "gameserver-1"},
		Database:           defaultDatabase(),
	}
}

// LoadAccountServer loads AccountServer config from a YAML file, falling
// back to defaults if the file does not exist.
func LoadAccountServer(path string) (AccountServer, error) {
	cfg := DefaultAccountServer()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// GameServer holds configuration for one game-server-shard process.
type GameServer struct {
	Name         string `yaml:"name"`
	ListenAddr   string `yaml:"listen_addr"`   // net_gameListenToClientPort (fallback: account port + 3)
	ExternalHost string `yaml:"external_host"` // advertised to account server in REGISTER
	ExternalPort int    `yaml:"external_port"`

	AccountServerAddr string `yaml:"account_server_addr"`
	NetPassword       string `yaml:"net_password"`
	ItemDBVersion     int32  `yaml:"item_db_version"`

	OwnedMaps []int16 `yaml:"owned_maps"`

	TickPeriod          string `yaml:"tick_period"` // duration, e.g. "100ms"
	FloorItemDecayTicks int    `yaml:"floor_item_decay_ticks"`

	LogLevel string `yaml:"log_level"`
}

// DefaultGameServer returns a GameServer config with sensible defaults.
func DefaultGameServer() GameServer {
	return GameServer{
		Name:                "gameserver-1",
		ListenAddr:          "0.0.0.0:2109",
		ExternalHost:        "127.0.0.1",
		ExternalPort:        2109,
		AccountServerAddr:   "127.0.0.1:9014",
		NetPassword:         "change-me",
		ItemDBVersion:       1,
		OwnedMaps:           []int16{1},
		TickPeriod:          "100ms",
		FloorItemDecayTicks: 18000,
		LogLevel:            "info",
	}
}

// LoadGameServer loads GameServer config from a YAML file.
func LoadGameServer(path string) (GameServer, error) {
	cfg := DefaultGameServer()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// ChatServer holds configuration for the chat endpoint process.
type ChatServer struct {
	BindAddress string `yaml:"bind_address"`
	Port        int    `yaml:"port"` // net_chatListenToClientPort (fallback: account port + 2)

	Database DatabaseConfig `yaml:"database"`
	LogLevel string         `yaml:"log_level"`

	MaxChannelNameLength int    `yaml:"max_channel_name_length"`
	PartyInviteDeadline  string `yaml:"party_invite_deadline"` // duration, default "60s"
}

// DefaultChatServer returns a ChatServer config with sensible defaults.
func DefaultChatServer() ChatServer {
	return ChatServer{
		BindAddress:          "0.0.0.0",
		Port:                 2108,
		LogLevel:             "info",
		MaxChannelNameLength: 32,
		PartyInviteDeadline:  "60s",
		Database:             defaultDatabase(),
	}
}

// LoadChatServer loads ChatServer config from a YAML file.
func LoadChatServer(path string) (ChatServer, error) {
	cfg := DefaultChatServer()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}
