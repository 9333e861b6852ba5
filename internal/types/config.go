package types

// Config represents the imgpack configuration file (~/.config/imgpack/config.yml)
type Config struct {
	Tabs         []string     `yaml:"tabs,flow"`
	Recursive    bool         `yaml:"recursive"`
	Depth        int          `yaml:"depth"`
	Zip          bool         `yaml:"zip"`
	NoBrowser    bool         `yaml:"no_browser"`
	OutputPrefix string       `yaml:"output_prefix"`
	ExcludeDirs  []string     `yaml:"exclude_dirs,omitempty"`
	EXIF         bool         `yaml:"exif"`
	LogLevel     string       `yaml:"log_level"`
	Server       ServerConfig `yaml:"server"`
	Assets       AssetsConfig `yaml:"assets"`

	// Path is the file the config was loaded from, empty when defaults are in use.
	Path string `yaml:"-"`
}

// ServerConfig configures the preview server
type ServerConfig struct {
	Addr       string  `yaml:"addr"`
	MaxConns   int     `yaml:"max_conns"`   // Concurrent connections, 0 = unlimited
	ExportRate float64 `yaml:"export_rate"` // Selective exports per second per client, 0 = unlimited
}

// AssetsConfig configures the PhotoSwipe lightbox download
type AssetsConfig struct {
	PhotoSwipeVersion string `yaml:"photoswipe_version"`
	Offline           bool   `yaml:"offline"`
	CacheDir          string `yaml:"cache_dir,omitempty"` // Defaults to the user cache dir
}

// Clone returns a deep copy of the configuration
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	res := *c
	if len(c.Tabs) > 0 {
		res.Tabs = make([]string, len(c.Tabs))
		copy(res.Tabs, c.Tabs)
	}
	if len(c.ExcludeDirs) > 0 {
		res.ExcludeDirs = make([]string, len(c.ExcludeDirs))
		copy(res.ExcludeDirs, c.ExcludeDirs)
	}
	return &res
}
