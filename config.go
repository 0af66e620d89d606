package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
)

// Config holds the gateway configuration
type Config struct {
	// BindAddress is the address the HTTP server listens on (e.g. "0.0.0.0:8080")
	BindAddress string
	// SerialPort is the path to the modem's serial port (e.g. "/dev/ttyUSB0")
	SerialPort string
	// BaudRate is the baud rate for serial communication with the modem (e.g. 115200)
	BaudRate int
	// LogLevel sets the logging level (e.g. "debug", "info", "warn", "error")
	LogLevel string
	// SimPIN is the SIM card PIN code
	SimPIN string
	// ReceiveBufferSize is the largest line accepted from the modem, in bytes;
	// longer lines are discarded
	ReceiveBufferSize int
	// NotificationQueue is the number of unsolicited modem lines buffered for
	// /notifications pollers before new ones are dropped
	NotificationQueue int
}

// ConfigOption is a function that modifies a Config
type ConfigOption func(*Config) error

// LoadConfig creates a new config by applying the given options in order
func LoadConfig(opts ...ConfigOption) (*Config, error) {
	config := &Config{}

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, err
		}
	}

	if config.ReceiveBufferSize < 1 {
		return nil, fmt.Errorf("receive buffer size must be positive, got %d", config.ReceiveBufferSize)
	}
	if config.NotificationQueue < 1 {
		return nil, fmt.Errorf("notification queue depth must be positive, got %d", config.NotificationQueue)
	}

	return config, nil
}

// WithDefaults applies default configuration values
func WithDefaults() ConfigOption {
	return func(c *Config) error {
		c.BindAddress = "0.0.0.0:8080"
		c.SerialPort = "/dev/ttyUSB0"
		c.BaudRate = 115200
		c.LogLevel = "info"
		c.ReceiveBufferSize = 256
		c.NotificationQueue = 64
		return nil
	}
}

// WithEnv loads configuration from environment variables
func WithEnv() ConfigOption {
	return func(c *Config) error {
		if addr := os.Getenv("BIND_ADDRESS"); addr != "" {
			c.BindAddress = addr
		}

		if serial := os.Getenv("SERIAL_PORT"); serial != "" {
			c.SerialPort = serial
		}

		if baud := os.Getenv("BAUD_RATE"); baud != "" {
			if b, err := strconv.Atoi(baud); err == nil {
				c.BaudRate = b
			}
		}

		if level := os.Getenv("LOG_LEVEL"); level != "" {
			c.LogLevel = level
		}

		if simPIN := os.Getenv("SIM_PIN"); simPIN != "" {
			c.SimPIN = simPIN
		}

		if size := os.Getenv("RECEIVE_BUFFER_SIZE"); size != "" {
			if s, err := strconv.Atoi(size); err == nil {
				c.ReceiveBufferSize = s
			}
		}

		if depth := os.Getenv("NOTIFICATION_QUEUE"); depth != "" {
			if d, err := strconv.Atoi(depth); err == nil {
				c.NotificationQueue = d
			}
		}

		return nil
	}
}

// WithFlags loads configuration from command-line flags
func WithFlags(fSet *flag.FlagSet) ConfigOption {
	return func(c *Config) error {
		fSet.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "bind-address":
				c.BindAddress = f.Value.String()
			case "serial-port":
				c.SerialPort = f.Value.String()
			case "baud-rate":
				if b, err := strconv.Atoi(f.Value.String()); err == nil {
					c.BaudRate = b
				}
			case "log-level":
				c.LogLevel = f.Value.String()
			case "sim-pin":
				c.SimPIN = f.Value.String()
			case "receive-buffer-size":
				if s, err := strconv.Atoi(f.Value.String()); err == nil {
					c.ReceiveBufferSize = s
				}
			case "notification-queue":
				if d, err := strconv.Atoi(f.Value.String()); err == nil {
					c.NotificationQueue = d
				}
			}

		})
		return nil
	}

}
