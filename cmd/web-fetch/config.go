package main

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	UserAgent string            `yaml:"userAgent"`
	Headers   map[string]string `yaml:"headers"`
}

func getConfig(filename string) (Config, error) {
	var config Config
	configBytes, err := os.ReadFile(filename)
	if err != nil {
		return config, err
	}
	err = yaml.Unmarshal(configBytes, &config)
	return config, err
}
