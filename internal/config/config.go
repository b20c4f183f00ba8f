package config

// Config is the gateway's runtime configuration, read from environment
// variables. It is an interface so tests can substitute fixed values.
type Config interface {
	EnvConfig
	BackendConfig
	SessionConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
}

// BackendConfig supplies the base URLs of the remote REST collaborators.
type BackendConfig interface {
	GetAuthAPIURL() string
	GetTicketsAPIURL() string
	GetWorkflowAPIURL() string
	GetAIAPIURL() string
}

type SessionConfig interface {
	GetSessionSecret() string
	GetSessionTTL() string
	GetRedisAddr() string
}

type mainConfig struct {
	EnvVars
}

func New() Config {
	return mainConfig{}
}
