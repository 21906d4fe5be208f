package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const defaultConfigFile = "data/config.yaml"

type config struct {
	Server    ServerConfig    `yaml:"server"`
	App       AppConfig       `yaml:"app"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Memcached MemcachedConfig `yaml:"memcached"`
}

type Service struct {
	config config
}

func New() (*Service, error) {
	file := os.Getenv("CONFIG_FILE")
	if file == "" {
		file = defaultConfigFile
	}

	s := &Service{}

	rawYAML, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.Wrap(err, "reading config file")
	}

	if err = parse(rawYAML, &s.config); err != nil {
		return nil, err
	}

	return s, nil
}

func parse(rawYAML []byte, conf *config) error {
	return errors.Wrap(yaml.Unmarshal(rawYAML, conf), "parsing yaml")
}

func (s *Service) Server() *ServerConfig {
	return &s.config.Server
}

func (s *Service) App() *AppConfig {
	return &s.config.App
}

func (s *Service) Postgres() *PostgresConfig {
	return &s.config.Postgres
}

func (s *Service) Kafka() *KafkaConfig {
	return &s.config.Kafka
}

func (s *Service) Memcached() *MemcachedConfig {
	return &s.config.Memcached
}
