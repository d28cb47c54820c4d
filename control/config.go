package control

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// VolumeTarget maps a catalog volume onto a media server and the content
// path holding that volume's files. An empty DeviceURL means the volume
// has no DLNA server and only pseudo protocols can reach it.
type VolumeTarget struct {
	DeviceURL string `json:"device_url"`
	Path      string `json:"path"`
}

// Renderer is a playback target: a device description URL, or one of the
// pseudo protocols "vlc" and "browser".
type Renderer struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

type Config struct {
	Volumes   map[string]VolumeTarget `json:"volumes"`
	Renderers []Renderer              `json:"renderers"`
	Listen    string                  `json:"listen"`
}

const (
	defaultConfigPath = "dmc.json"
	defaultListen     = ":8080"
)

// Load reads the config file named by DMC_CONFIG, falling back to
// ./dmc.json. DMC_LISTEN overrides the serve address.
func Load() (*Config, error) {
	path := os.Getenv("DMC_CONFIG")
	if path == "" {
		path = defaultConfigPath
	}
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	if listen := os.Getenv("DMC_LISTEN"); listen != "" {
		cfg.Listen = listen
	}
	return cfg, nil
}

func LoadFile(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	// Volume labels compare case-insensitively throughout.
	volumes := make(map[string]VolumeTarget, len(cfg.Volumes))
	for label, target := range cfg.Volumes {
		volumes[strings.ToLower(label)] = target
	}
	cfg.Volumes = volumes
	if cfg.Listen == "" {
		cfg.Listen = defaultListen
	}
	return &cfg, nil
}

func (me *Config) Volume(label string) (VolumeTarget, bool) {
	target, ok := me.Volumes[strings.ToLower(label)]
	return target, ok
}

// DefaultRenderer is the first configured renderer, the fallback when a
// request names none.
func (me *Config) DefaultRenderer() string {
	if len(me.Renderers) == 0 {
		return ""
	}
	return me.Renderers[0].URL
}
