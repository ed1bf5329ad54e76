package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type SPI struct {
	Port    string `yaml:"port"`     // periph port name, "" = first
	Dev     string `yaml:"dev"`      // e.g. /dev/spidev0.0, used by transport=spidev
	SpeedHz int    `yaml:"speed_hz"` // e.g. 6400000
}

type NRZLED struct {
	SpeedHz int `yaml:"speed_hz"` // e.g. 2500000
}

type Config struct {
	NumPixels int    `yaml:"num_pixels"`
	Transport string `yaml:"transport"` // "spi" | "spidev" | "nrzled" | "sim"
	Mode      string `yaml:"mode"`      // "sync" | "async"
	FPS       int    `yaml:"fps"`
	Addr      string `yaml:"addr"`
	LogLevel  string `yaml:"log_level"`
	Pattern   string `yaml:"pattern,omitempty"`

	SPI    SPI    `yaml:"spi,omitempty"`
	NRZLED NRZLED `yaml:"nrzled,omitempty"`
}

func Default() *Config {
	return &Config{
		NumPixels: 60,
		Transport: "sim",
		Mode:      "async",
		FPS:       30,
		Addr:      ":8080",
		LogLevel:  "info",
		SPI: SPI{
			Dev:     "/dev/spidev0.0",
			SpeedHz: 6400000,
		},
		NRZLED: NRZLED{SpeedHz: 2500000},
	}
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}
