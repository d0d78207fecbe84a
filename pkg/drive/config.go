package drive

import (
	"encoding/json"
	"os"
)

const DefaultConfigFile = "rover.json"

// Config holds the base configuration
type Config struct {
	Port     string   `json:"port"`
	Wheels   Wheels   `json:"wheels"`
	Geometry Geometry `json:"geometry"`
}

// Wheels maps wheel positions to servo IDs on the bus.
type Wheels struct {
	LeftID  int `json:"left_id"`
	RightID int `json:"right_id"`
}

// Geometry describes the drive geometry in meters.
type Geometry struct {
	WheelDiameter    float64 `json:"wheel_diameter"`
	TrackWidth       float64 `json:"track_width"`
	TurnRadius       float64 `json:"turn_radius,omitempty"`
	CountsPerTurn    int     `json:"counts_per_turn,omitempty"`
	InvertRightWheel bool    `json:"invert_right_wheel,omitempty"`
}

// DefaultCountsPerTurn is the STS3215 encoder resolution.
const DefaultCountsPerTurn = 4096

// IsConfigured returns true if the base has a port and both wheel IDs.
func (c *Config) IsConfigured() bool {
	return c.Port != "" && c.Wheels.LeftID != 0 && c.Wheels.RightID != 0
}

// LoadConfig loads configuration from the default config file
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(DefaultConfigFile)
}

// LoadConfigFrom loads configuration from a specific file
func LoadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if cfg.Geometry.CountsPerTurn == 0 {
		cfg.Geometry.CountsPerTurn = DefaultCountsPerTurn
	}
	return &cfg, nil
}

// Save saves configuration to the default config file
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigFile)
}

// SaveTo saves configuration to a specific file
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ConfigExists returns true if the default config file exists
func ConfigExists() bool {
	_, err := os.Stat(DefaultConfigFile)
	return err == nil
}
