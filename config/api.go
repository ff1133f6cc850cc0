package config

// APIConfig configures the HTTP endpoint serving plan logs. An empty Addr
// disables it.
type APIConfig struct {
	Addr  string `json:"addr"`
	Token string `json:"token"`
}
