package main

// Config defines the client-side environment variables.
type Config struct {
	ServerAddress string `env:"CHAT_SERVER_ADDR,default=localhost:8080"`
	LogLevel      string `env:"LOG_LEVEL,default=warn"`
}
