package config

type ServerConfig struct {
	ServerPort string `yaml:"port"`
}

func (s *ServerConfig) Port() string {
	if s.ServerPort == "" {
		return "5000"
	}
	return s.ServerPort
}
