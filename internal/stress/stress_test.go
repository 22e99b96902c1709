package stress

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"zero producers", func(c *Config) { c.Producers = 0 }, true},
		{"negative consumers", func(c *Config) { c.Consumers = -1 }, true},
		{"zero per producer", func(c *Config) { c.PerProducer = 0 }, true},
		{"unknown mode", func(c *Config) { c.Mode = "sometimes" }, true},
		{"empty mode", func(c *Config) { c.Mode = "" }, true},
		{"try mode", func(c *Config) { c.Mode = ModeTry }, false},
		{"total overflows int", func(c *Config) { c.Producers, c.PerProducer = 2, math.MaxInt/2 + 1 }, true},
		{"total above limit", func(c *Config) { c.Producers, c.PerProducer = 4, MaxTotal/4 + 1 }, true},
		{"too many producers", func(c *Config) { c.Producers, c.PerProducer = MaxTotal + 1, 1 }, true},
		{"total at limit", func(c *Config) { c.Producers, c.PerProducer = 4, MaxTotal / 4 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("WAIT")
	require.NoError(t, err)
	assert.Equal(t, ModeWait, m)

	_, err = ParseMode("spin")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestModeFor(t *testing.T) {
	cfg := Config{Mode: ModeMixed}
	assert.Equal(t, ModeWait, cfg.modeFor(0))
	assert.Equal(t, ModeTry, cfg.modeFor(1))

	cfg.Mode = ModeTry
	assert.Equal(t, ModeTry, cfg.modeFor(0))
}

func TestRun(t *testing.T) {
	for _, mode := range SupportedModes {
		for _, shape := range []struct{ p, c int }{{1, 1}, {4, 2}, {2, 6}} {
			cfg := Config{Producers: shape.p, Consumers: shape.c, PerProducer: 2000, Mode: mode}
			t.Run(fmt.Sprintf("%s_%dP_%dC", mode, shape.p, shape.c), func(t *testing.T) {
				report, err := Run(context.Background(), cfg, zaptest.NewLogger(t))
				require.NoError(t, err)
				assert.True(t, report.OK())
				assert.Equal(t, cfg.Total(), report.Pushed)
				assert.Equal(t, cfg.Total(), report.Popped)
				assert.Zero(t, report.Leftover)

				sum := 0
				for _, n := range report.PerConsumer {
					sum += n
				}
				assert.Equal(t, cfg.Total(), sum)
			})
		}
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	_, err := Run(context.Background(), Config{}, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRun_NilLogger(t *testing.T) {
	cfg := Config{Producers: 2, Consumers: 2, PerProducer: 100, Mode: ModeWait}
	report, err := Run(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.True(t, report.OK())
}

func TestRun_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := Config{Producers: 2, Consumers: 2, PerProducer: 100000, Mode: ModeWait}
	done := make(chan error, 1)
	go func() {
		_, err := Run(ctx, cfg, zaptest.NewLogger(t))
		done <- err
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestVerify(t *testing.T) {
	cfg := Config{Producers: 2, PerProducer: 3, Consumers: 2, Mode: ModeTry}
	results := []consumerResult{
		{values: []int{0, 1, 3, 3}},
		{values: []int{4, 9}, orderViolations: 1},
	}
	r := verify(cfg, results)
	assert.Equal(t, 1, r.Duplicates)
	assert.Equal(t, 2, r.Missing) // 2 and 5
	assert.Equal(t, 1, r.Unknown)
	assert.Equal(t, 1, r.OrderViolations)
	assert.Equal(t, []int{4, 2}, r.PerConsumer)
	assert.False(t, r.OK())
}

func TestRun_TotalOverflowRejected(t *testing.T) {
	cfg := Config{Producers: 2, Consumers: 1, PerProducer: math.MaxInt/2 + 1, Mode: ModeTry}
	assert.NotPanics(t, func() {
		_, err := Run(context.Background(), cfg, zaptest.NewLogger(t))
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestRoundErr(t *testing.T) {
	cfg := Config{Producers: 1, Consumers: 1, PerProducer: 2, Mode: ModeTry}
	passed := Report{Config: cfg, Pushed: 2, Popped: 2}
	incomplete := Report{Config: cfg, Pushed: 2, Popped: 1, Missing: 1}

	done, cancel := context.WithCancel(context.Background())
	cancel()
	producerErr := fmt.Errorf("producer 0 stopped: %w", context.Canceled)

	tests := []struct {
		name     string
		ctx      context.Context
		groupErr error
		report   Report
		wantErr  error
	}{
		{"passed", context.Background(), nil, passed, nil},
		{"passed with ctx done afterwards", done, nil, passed, nil},
		{"incomplete after cancel", done, nil, incomplete, context.Canceled},
		{"producer stopped by cancel", done, producerErr, incomplete, context.Canceled},
		{"incomplete without cancel", context.Background(), nil, incomplete, ErrVerification},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := roundErr(tt.ctx, tt.groupErr, tt.report)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
