package store

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ClusterMember is one entry in a cluster configuration's members list.
type ClusterMember struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// ClusterConfig is the datastore connection document read from the file
// passed via --cluster (§6): a key prefix and a member list. Only the
// first member is dialed; the rest are reserved for future failover.
type ClusterConfig struct {
	Prefix  string          `yaml:"cluster"`
	Members []ClusterMember `yaml:"members"`
}

// LoadClusterConfig reads and validates a cluster configuration file.
func LoadClusterConfig(path string) (*ClusterConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cluster config %s: %w", path, err)
	}

	var cfg ClusterConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse cluster config %s: %w", path, err)
	}

	if cfg.Prefix == "" {
		return nil, fmt.Errorf("cluster config %s: missing cluster prefix", path)
	}
	if len(cfg.Members) == 0 {
		return nil, fmt.Errorf("cluster config %s: no members declared", path)
	}

	return &cfg, nil
}

// Endpoint returns the first member's address, the one the controller
// connects to.
func (c *ClusterConfig) Endpoint() string {
	m := c.Members[0]
	return fmt.Sprintf("%s:%d", m.Host, m.Port)
}

// Dial connects a Datastore to this cluster's first member.
func (c *ClusterConfig) Dial(dialTimeout time.Duration) (Datastore, error) {
	return DialEtcd([]string{c.Endpoint()}, dialTimeout)
}
