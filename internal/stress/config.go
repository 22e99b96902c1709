package stress

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidConfig is returned by Config.Validate.
var ErrInvalidConfig = errors.New("invalid stress config")

// PopMode selects how consumers take elements off the queue.
type PopMode string

const (
	// ModeTry spins on TryPop.
	ModeTry PopMode = "try"
	// ModeWait blocks in WaitAndPopContext.
	ModeWait PopMode = "wait"
	// ModeMixed gives even consumers ModeWait and odd consumers ModeTry.
	ModeMixed PopMode = "mixed"
)

// SupportedModes lists every PopMode, in the order used for help text.
var SupportedModes = []PopMode{ModeTry, ModeWait, ModeMixed}

// ParseMode converts a flag value into a PopMode.
func ParseMode(s string) (PopMode, error) {
	for _, m := range SupportedModes {
		if strings.EqualFold(s, string(m)) {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: unknown pop mode %q (supported: %v)", ErrInvalidConfig, s, SupportedModes)
}

// Config describes one stress round.
type Config struct {
	Producers   int
	Consumers   int
	PerProducer int
	Mode        PopMode
	// Capacity is the initial buffer size hint passed to the queue.
	Capacity int
}

func DefaultConfig() Config {
	return Config{
		Producers:   8,
		Consumers:   8,
		PerProducer: 10000,
		Mode:        ModeMixed,
	}
}

// MaxTotal bounds Producers*PerProducer so that the round's bookkeeping fits in memory.
const MaxTotal = 1 << 28

// Total is the number of elements pushed, and therefore popped, in one round.
func (c Config) Total() int {
	return c.Producers * c.PerProducer
}

func (c Config) Validate() error {
	switch {
	case c.Producers <= 0:
		return fmt.Errorf("%w: producers must be positive, got %d", ErrInvalidConfig, c.Producers)
	case c.Consumers <= 0:
		return fmt.Errorf("%w: consumers must be positive, got %d", ErrInvalidConfig, c.Consumers)
	case c.PerProducer <= 0:
		return fmt.Errorf("%w: per-producer count must be positive, got %d", ErrInvalidConfig, c.PerProducer)
	case c.PerProducer > MaxTotal/c.Producers:
		return fmt.Errorf("%w: %d producers x %d values exceeds the limit of %d values per round",
			ErrInvalidConfig, c.Producers, c.PerProducer, MaxTotal)
	}
	if _, err := ParseMode(string(c.Mode)); err != nil {
		return err
	}
	return nil
}

// modeFor returns the pop mode of consumer i.
func (c Config) modeFor(i int) PopMode {
	if c.Mode != ModeMixed {
		return c.Mode
	}
	if i%2 == 0 {
		return ModeWait
	}
	return ModeTry
}
