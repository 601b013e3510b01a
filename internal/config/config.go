package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Operation is one entry of the closed catalog of platform actions the
// system can perform. Capabilities bind to operations by name; there is no
// other way to reach a target platform.
type Operation struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Platform    string            `yaml:"platform"` // shopify, wordpress, any
	Method      string            `yaml:"method"`
	Path        string            `yaml:"path"` // template, relative to the connection base URL
	Mode        string            `yaml:"mode"` // read, write, dangerous
	TimeoutMs   int               `yaml:"timeout"`
	Body        map[string]string `yaml:"body"` // templates rendered with intent params
}

// CapabilitySeed es una capability pre-registrada desde YAML.
type CapabilitySeed struct {
	Name            string         `yaml:"name"`
	Description     string         `yaml:"description"`
	Operation       string         `yaml:"operation"`
	ParameterSchema map[string]any `yaml:"parameter_schema"`
}

// Policy holds the lexical guard-rail lists.
type Policy struct {
	DangerousVerbs   []string `yaml:"dangerous_verbs"`
	ProtectedTargets []string `yaml:"protected_targets"`
}

// Connection identifies one connected store. The core borrows it and never
// mutates it.
type Connection struct {
	Name     string `yaml:"name"`
	Platform string `yaml:"platform"` // shopify, wordpress
	BaseURL  string `yaml:"base_url"`
	Token    string `yaml:"token"`
}

type Config struct {
	Operations  map[string]Operation
	Seeds       map[string]CapabilitySeed
	Policy      Policy
	Connections map[string]Connection
}

func LoadFromDir(base string) (*Config, error) {
	cfg := &Config{
		Operations:  make(map[string]Operation),
		Seeds:       make(map[string]CapabilitySeed),
		Connections: make(map[string]Connection),
	}

	if err := loadOperationsDir(filepath.Join(base, "operations"), cfg); err != nil {
		return nil, err
	}
	if err := loadCapabilitiesDir(filepath.Join(base, "capabilities"), cfg); err != nil {
		return nil, err
	}
	if err := loadPolicyDir(filepath.Join(base, "policy"), cfg); err != nil {
		return nil, err
	}
	if err := loadConnectionsDir(filepath.Join(base, "connections"), cfg); err != nil {
		return nil, err
	}

	// Every seed must bind to a known operation; failing late (at dispatch
	// time) would hide a broken definitions tree until first use.
	for name, s := range cfg.Seeds {
		if _, ok := cfg.Operations[s.Operation]; !ok {
			return nil, fmt.Errorf("capability %s references unknown operation %s", name, s.Operation)
		}
	}

	return cfg, nil
}

func loadOperationsDir(dir string, cfg *Config) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("leyendo operations dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		var raw struct {
			Operations []Operation `yaml:"operations"`
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("parseando %s: %w", path, err)
		}
		for _, op := range raw.Operations {
			cfg.Operations[op.Name] = op
		}
	}
	return nil
}

func loadCapabilitiesDir(dir string, cfg *Config) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("leyendo capabilities dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		var raw struct {
			Capabilities []CapabilitySeed `yaml:"capabilities"`
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("parseando %s: %w", path, err)
		}
		for _, c := range raw.Capabilities {
			cfg.Seeds[c.Name] = c
		}
	}
	return nil
}

func loadPolicyDir(dir string, cfg *Config) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("leyendo policy dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		var raw Policy
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("parseando %s: %w", path, err)
		}
		cfg.Policy.DangerousVerbs = append(cfg.Policy.DangerousVerbs, raw.DangerousVerbs...)
		cfg.Policy.ProtectedTargets = append(cfg.Policy.ProtectedTargets, raw.ProtectedTargets...)
	}
	return nil
}

func loadConnectionsDir(dir string, cfg *Config) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("leyendo connections dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		var raw struct {
			Connections []Connection `yaml:"connections"`
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("parseando %s: %w", path, err)
		}
		for _, c := range raw.Connections {
			cfg.Connections[c.Name] = c
		}
	}
	return nil
}
