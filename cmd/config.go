package main

import "time"

type Config struct {
	ConnectionBufferSize      int           `env:"CONNECTION_BUFFER_SIZE,required=true"`
	ModerationCharReplacement rune          `env:"MODERATION_CHARACTER_REPLACEMENT,default=42"`
	TokenDuration             time.Duration `env:"TOKEN_DURATION,default=24h"`
	TelemetryInterval         time.Duration `env:"TELEMETRY_INTERVAL,default=30s"`
	GCInterval                time.Duration `env:"GC_INTERVAL,default=5m"`
	ShutdownTimeout           time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
	BadgerFilepath            string        `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath             string        `env:"BLUGE_FILEPATH,required=true"`
	LogLevel                  string        `env:"LOG_LEVEL,required=true"`
	Host                      string        `env:"HOST,default=localhost"`
	Port                      int           `env:"PORT,default=8080"`
}
