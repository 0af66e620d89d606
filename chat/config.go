package chat

import (
	"errors"
	"log/slog"
)

// Config holds the static configuration of an Engine. Build one with
// NewConfigBuilder.
type Config struct {
	// ReceiveBufferSize caps the length of a single incoming line,
	// delimiter excluded. Longer lines overflow and are discarded.
	ReceiveBufferSize int

	// MaxArgs caps the number of argument slots produced per matched
	// line, including args[0]. Once the cap is reached the unsplit
	// remainder becomes the final argument.
	MaxArgs int

	// Delimiter marks the end of a logical line in both directions: it is
	// stripped from incoming lines and appended after every non-empty
	// request.
	Delimiter []byte

	// FilterBytes are dropped from the incoming stream before line
	// assembly, e.g. NUL bytes some UARTs inject.
	FilterBytes []byte

	// Unsolicited matches are tested against every complete line that no
	// active script step consumes. The slice is referenced, not copied,
	// and must outlive the engine.
	Unsolicited []Match

	// Logger receives overflow and transport diagnostics. Nil discards.
	Logger *slog.Logger
}

func (c *Config) setDefaults() {
	if c.ReceiveBufferSize == 0 {
		c.ReceiveBufferSize = 256
	}
	if c.MaxArgs == 0 {
		c.MaxArgs = 32
	}
	if len(c.Delimiter) == 0 {
		c.Delimiter = []byte("\r\n")
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
}

func (c *Config) validate() error {
	if c.ReceiveBufferSize < 1 {
		return errors.New("receive buffer size must be positive")
	}
	if c.MaxArgs < 2 {
		return errors.New("max args must be at least 2")
	}
	if len(c.Delimiter) == 0 {
		return errors.New("delimiter must not be empty")
	}
	for i := range c.Unsolicited {
		if err := c.Unsolicited[i].validate(); err != nil {
			return err
		}
	}
	return nil
}

// ConfigBuilder assembles a Config fluently.
type ConfigBuilder struct {
	config Config
}

// NewConfigBuilder returns a builder preloaded with nothing; unset fields
// take their defaults at Build time.
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{}
}

// WithReceiveBufferSize sets the per-line capacity in bytes.
func (b *ConfigBuilder) WithReceiveBufferSize(n int) *ConfigBuilder {
	b.config.ReceiveBufferSize = n
	return b
}

// WithMaxArgs sets the argument slot capacity per matched line.
func (b *ConfigBuilder) WithMaxArgs(n int) *ConfigBuilder {
	b.config.MaxArgs = n
	return b
}

// WithDelimiter sets the line delimiter. Defaults to CRLF.
func (b *ConfigBuilder) WithDelimiter(delim string) *ConfigBuilder {
	b.config.Delimiter = []byte(delim)
	return b
}

// WithFilterBytes sets the bytes stripped from the incoming stream.
func (b *ConfigBuilder) WithFilterBytes(filter string) *ConfigBuilder {
	b.config.FilterBytes = []byte(filter)
	return b
}

// WithUnsolicited sets the always-live unsolicited match table.
func (b *ConfigBuilder) WithUnsolicited(matches []Match) *ConfigBuilder {
	b.config.Unsolicited = matches
	return b
}

// WithLogger sets the engine's logger.
func (b *ConfigBuilder) WithLogger(logger *slog.Logger) *ConfigBuilder {
	b.config.Logger = logger
	return b
}

// Build applies defaults, validates, and returns the Config.
func (b *ConfigBuilder) Build() (Config, error) {
	config := b.config
	config.setDefaults()
	if err := config.validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}
