package config

import (
	"fmt"
	"os"
)

const (
	portEnvVar    = "PORT"
	appNameVar    = "APP_NAME"
	authAPIVar    = "AUTH_API_URL"
	ticketsAPIVar = "TICKETS_API_URL"
	workflowVar   = "WORKFLOW_API_URL"
	aiAPIVar      = "AI_API_URL"
)

type EnvVars struct{}

var _ Config = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if port != "" && port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "ServiceDesk Portal")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func (EnvVars) GetAuthAPIURL() string {
	return GetEnv(authAPIVar, "http://localhost:5001")
}

func (EnvVars) GetTicketsAPIURL() string {
	return GetEnv(ticketsAPIVar, "http://localhost:5002")
}

func (EnvVars) GetWorkflowAPIURL() string {
	return GetEnv(workflowVar, "http://localhost:5003")
}

func (EnvVars) GetAIAPIURL() string {
	return GetEnv(aiAPIVar, "http://localhost:5004")
}

// GetSessionSecret returns the key used to sign session cookies. The
// default exists so a bare DEV checkout runs; production must set it.
func (EnvVars) GetSessionSecret() string {
	return GetEnv("SESSION_SECRET", "dev-insecure-session-secret")
}

// GetSessionTTL returns the session lifetime as a Go duration string.
func (EnvVars) GetSessionTTL() string {
	return GetEnv("SESSION_TTL", "12h")
}

// GetRedisAddr returns the redis address for session storage; empty
// selects the in-memory repository.
func (EnvVars) GetRedisAddr() string {
	return GetEnv("REDIS_ADDR", "")
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
