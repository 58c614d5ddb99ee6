// Package config provides configuration management, generalized from the
// reference codebase's JSON-file configuration manager: per-OS config
// directory resolution, Load/Save via encoding/json with indented output,
// a change-callback registration hook, and a mutex-guarded in-memory copy.
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"mouseshare/internal/errs"
)

// Role identifies which side of a session a host plays.
type Role string

const (
	RolePrimary   Role = "primary"
	RoleSecondary Role = "secondary"
)

// Config is the full §6 configuration surface.
type Config struct {
	Role Role `json:"role"`

	Port              int    `json:"port"`
	DiscoveryPort     int    `json:"discovery_port"`
	SwitchEdge        string `json:"switch_edge"`
	ToggleKey         uint32 `json:"toggle_key"`
	UserToggleKey     uint32 `json:"user_toggle_key"`
	ReconnectInterval int    `json:"reconnect_interval_ms"`
	KeepaliveInterval int    `json:"keepalive_interval_ms"`
	IdleTimeout       int    `json:"idle_timeout_ms"`
	SafetyRelease     int    `json:"safety_release_ms"`
	PeerExpiry        int    `json:"peer_expiry_ms"`
	DisplayName       string `json:"display_name"`
	HostID            string `json:"host_id"`

	// SecondaryTarget is the host the secondary connects to; unused on a
	// primary, which only accepts.
	SecondaryTarget string `json:"secondary_target,omitempty"`
}

// DefaultConfig returns a new Config with the defaults listed in §6.
// DisplayName defaults to the machine hostname; HostID is left empty so
// Load can tell a fresh config apart from one that already has an
// identity, and generate one on first run.
func DefaultConfig() *Config {
	name, _ := os.Hostname()
	return &Config{
		Role:              RolePrimary,
		Port:              24800,
		DiscoveryPort:     24801,
		SwitchEdge:        "right",
		ToggleKey:         0x91, // VK_SCROLL
		UserToggleKey:     0x77, // VK_F8
		ReconnectInterval: 3000,
		KeepaliveInterval: 5000,
		IdleTimeout:       30000,
		SafetyRelease:     30000,
		PeerExpiry:        10000,
		DisplayName:       name,
	}
}

// Manager handles loading and saving configuration.
type Manager struct {
	mu         sync.Mutex
	configPath string
	config     *Config
	onChanged  func()
}

// NewManager creates a configuration manager backed by the per-OS config
// directory, loading an optional .env overlay first so environment
// variables can override fields for local testing without editing the
// JSON file directly.
func NewManager(appName string) (*Manager, error) {
	_ = godotenv.Load() // best-effort; absence of .env is not an error

	configPath, err := getConfigPath(appName)
	if err != nil {
		return nil, err
	}

	return &Manager{
		configPath: configPath,
		config:     DefaultConfig(),
	}, nil
}

func getConfigPath(appName string) (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", appName)
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		configDir = filepath.Join(appData, appName)
	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, ".config", appName)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", err
	}

	return filepath.Join(configDir, "config.json"), nil
}

// Load reads the configuration from disk, applies any MOUSESHARE_* env
// overrides, and assigns a fresh host_id on first run — this is where the
// stable-peer-identity decision is materially implemented.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.configPath)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	if err == nil {
		if err := json.Unmarshal(data, m.config); err != nil {
			return err
		}
	}

	applyEnvOverrides(m.config)

	dirty := false
	if m.config.HostID == "" {
		m.config.HostID = uuid.NewString()
		dirty = true
	}

	if dirty {
		if err := m.saveLocked(); err != nil {
			return err
		}
	}

	if m.onChanged != nil {
		m.onChanged()
	}
	return nil
}

func applyEnvOverrides(c *Config) {
	if v := os.Getenv("MOUSESHARE_ROLE"); v != "" {
		c.Role = Role(v)
	}
	if v := os.Getenv("MOUSESHARE_SECONDARY_TARGET"); v != "" {
		c.SecondaryTarget = v
	}
	if v := os.Getenv("MOUSESHARE_DISPLAY_NAME"); v != "" {
		c.DisplayName = v
	}
}

// Save writes the configuration to disk.
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveLocked()
}

func (m *Manager) saveLocked() error {
	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		return err
	}
	log.Printf("config: saving to %s (%d bytes)", m.configPath, len(data))
	return os.WriteFile(m.configPath, data, 0644)
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config
}

// Set replaces the configuration and notifies the change callback.
func (m *Manager) Set(c *Config) {
	m.mu.Lock()
	m.config = c
	m.mu.Unlock()
	if m.onChanged != nil {
		m.onChanged()
	}
}

// RegisterChangeCallback registers a function called after Load/Set.
func (m *Manager) RegisterChangeCallback(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChanged = fn
}

// Validate reports a config error if the role/target combination is
// unusable, matching the ambient error-handling policy's ErrConfig kind.
func (c *Config) Validate() error {
	if c.Role == RoleSecondary && c.SecondaryTarget == "" {
		return fmt.Errorf("%w: secondary role requires secondary_target", errs.ErrConfig)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: invalid port %d", errs.ErrConfig, c.Port)
	}
	return nil
}
