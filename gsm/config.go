package gsm

import "time"

// Config carries the link configuration. Capacities are fixed at
// configuration time and never resized afterward.
type Config struct {
	dialer         Dialer
	handlers       Handlers
	commandTimeout time.Duration
	sendPause      time.Duration
	maxSlots       int
	maxPrefixLen   int
	maxLineLen     int
	maxDataLen     int
}

func (c *Config) setDefaults() {
	if c.commandTimeout == 0 {
		c.commandTimeout = 32 * time.Second
	}
	if c.sendPause == 0 {
		c.sendPause = 500 * time.Millisecond
	}
	if c.maxSlots == 0 {
		c.maxSlots = 10
	}
	if c.maxPrefixLen == 0 {
		c.maxPrefixLen = 10
	}
	if c.maxLineLen == 0 {
		c.maxLineLen = 100
	}
	if c.maxDataLen == 0 {
		c.maxDataLen = 100
	}
}

func (c *Config) validate() error {
	if c.dialer == nil {
		return ErrNoDialer
	}
	return nil
}

// ConfigBuilder assembles a Config. Zero values fall back to defaults in
// Build.
type ConfigBuilder struct {
	config Config
}

func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{}
}

// WithDialer sets the Dialer used to open the modem transport. Required.
func (b *ConfigBuilder) WithDialer(d Dialer) *ConfigBuilder {
	b.config.dialer = d
	return b
}

// WithHandlers sets the outward callbacks invoked by the dispatcher.
func (b *ConfigBuilder) WithHandlers(h Handlers) *ConfigBuilder {
	b.config.handlers = h
	return b
}

// WithCommandTimeout sets the deadline applied to a command's wait for
// its terminal status when the caller's context carries none.
func (b *ConfigBuilder) WithCommandTimeout(d time.Duration) *ConfigBuilder {
	b.config.commandTimeout = d
	return b
}

// WithSendPause sets the pause between the SMS submit command and the
// message body. The modem's "> " prompt carries no line terminator, so
// the pause stands in for prompt detection.
func (b *ConfigBuilder) WithSendPause(d time.Duration) *ConfigBuilder {
	b.config.sendPause = d
	return b
}

// WithMaxExpectations sets the expectation table capacity.
func (b *ConfigBuilder) WithMaxExpectations(n int) *ConfigBuilder {
	b.config.maxSlots = n
	return b
}

// WithMaxPrefixLength sets the maximum registrable prefix length.
func (b *ConfigBuilder) WithMaxPrefixLength(n int) *ConfigBuilder {
	b.config.maxPrefixLen = n
	return b
}

// WithMaxLineLength sets the receive line buffer capacity. Longer lines
// are truncated, not split.
func (b *ConfigBuilder) WithMaxLineLength(n int) *ConfigBuilder {
	b.config.maxLineLen = n
	return b
}

// WithMaxResponseLength sets the per-slot accumulated data capacity.
func (b *ConfigBuilder) WithMaxResponseLength(n int) *ConfigBuilder {
	b.config.maxDataLen = n
	return b
}

func (b *ConfigBuilder) Build() (Config, error) {
	config := b.config
	config.setDefaults()
	if err := config.validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}
