package logging

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fyrsmithlabs/studydocs/internal/config"
)

func sampledLogger(levels map[zapcore.Level]LevelSamplingConfig) (*Logger, *observer.ObservedLogs) {
	core, observed := observer.New(TraceLevel)
	sampled := newSampledCore(core, SamplingConfig{
		Enabled: true,
		Tick:    config.Duration(time.Minute),
		Levels:  levels,
	})
	return &Logger{zap: zap.New(sampled), config: NewDefaultConfig()}, observed
}

func TestNewSampledCore_Disabled(t *testing.T) {
	core, _ := observer.New(zapcore.InfoLevel)
	sampled := newSampledCore(core, SamplingConfig{Enabled: false})
	assert.Equal(t, core, sampled)
}

func TestNewSampledCore_ErrorsNeverSampled(t *testing.T) {
	levels := DefaultLevelSamplingConfig()
	// Even an explicit budget for errors is ignored.
	levels[zapcore.ErrorLevel] = LevelSamplingConfig{Initial: 1}
	logger, observed := sampledLogger(levels)

	for i := 0; i < 100; i++ {
		logger.Error(context.Background(), "read failed")
	}

	assert.Equal(t, 100, observed.FilterMessage("read failed").Len())
}

func TestNewSampledCore_PerLevelBudgets(t *testing.T) {
	logger, observed := sampledLogger(DefaultLevelSamplingConfig())
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		logger.Trace(ctx, "trace flood")
		logger.Debug(ctx, "debug flood")
	}
	for i := 0; i < 200; i++ {
		logger.Info(ctx, "info flood")
	}

	assert.Equal(t, 1, observed.FilterMessage("trace flood").Len())
	assert.Equal(t, 10, observed.FilterMessage("debug flood").Len())
	// First 100, then every 10th of the remaining 100.
	assert.Equal(t, 110, observed.FilterMessage("info flood").Len())
}

func TestNewSampledCore_UnlistedLevelPassesThrough(t *testing.T) {
	logger, observed := sampledLogger(map[zapcore.Level]LevelSamplingConfig{
		zapcore.DebugLevel: {Initial: 1},
	})
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		logger.Info(ctx, "info unsampled")
		logger.Debug(ctx, "debug sampled")
	}

	assert.Equal(t, 20, observed.FilterMessage("info unsampled").Len())
	assert.Equal(t, 1, observed.FilterMessage("debug sampled").Len())
}

func TestLevelFilterCore_With(t *testing.T) {
	core, observed := observer.New(TraceLevel)
	filtered := filterLevels(core, func(l zapcore.Level) bool { return l == zapcore.WarnLevel })

	child := zap.New(filtered).With(zap.String("component", "scanner"))
	child.Info("dropped")
	child.Warn("kept")

	entries := observed.All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "kept", entries[0].Message)
		assert.Equal(t, "scanner", entries[0].ContextMap()["component"])
	}
}

func TestCountingSampler(t *testing.T) {
	core, observed := observer.New(TraceLevel)
	sampler := newCountingSampler(core, time.Minute, 2, 5)
	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	write := func(msg string, when time.Time) {
		e := zapcore.Entry{Level: TraceLevel, Message: msg, Time: when}
		if ce := sampler.Check(e, nil); ce != nil {
			ce.Write()
		}
	}

	for i := 0; i < 12; i++ {
		write("walk step", at)
	}
	write("other step", at)
	// First 2, then the 7th and 12th.
	assert.Equal(t, 4, observed.FilterMessage("walk step").Len())
	assert.Equal(t, 1, observed.FilterMessage("other step").Len())

	write("walk step", at.Add(time.Minute))
	assert.Equal(t, 5, observed.FilterMessage("walk step").Len(), "counts reset each tick")
}

func TestNewSampledCore_TraceLimited(t *testing.T) {
	logger, observed := sampledLogger(map[zapcore.Level]LevelSamplingConfig{
		TraceLevel: {Initial: 3},
	})
	child := logger.With(zap.String("component", "searcher"))

	for i := 0; i < 40; i++ {
		child.Trace(context.Background(), "file scanned")
	}

	entries := observed.FilterMessage("file scanned").All()
	if assert.Len(t, entries, 3) {
		assert.Equal(t, "searcher", entries[0].ContextMap()["component"])
	}
}
