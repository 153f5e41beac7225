// internal/logging/sampling.go
package logging

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newSampledCore wraps core with per-level sampling. Each level listed in
// cfg.Levels gets its own sampler; unlisted levels and Error and above pass
// through untouched.
func newSampledCore(core zapcore.Core, cfg SamplingConfig) zapcore.Core {
	if !cfg.Enabled || len(cfg.Levels) == 0 {
		return core
	}

	sampled := make([]zapcore.Level, 0, len(cfg.Levels))
	for lvl := range cfg.Levels {
		if lvl < zapcore.ErrorLevel {
			sampled = append(sampled, lvl)
		}
	}
	sort.Slice(sampled, func(i, j int) bool { return sampled[i] < sampled[j] })

	isSampled := func(lvl zapcore.Level) bool {
		_, ok := cfg.Levels[lvl]
		return ok && lvl < zapcore.ErrorLevel
	}

	cores := []zapcore.Core{
		filterLevels(core, func(lvl zapcore.Level) bool { return !isSampled(lvl) }),
	}

	for _, lvl := range sampled {
		rate := cfg.Levels[lvl]
		only := lvl
		filtered := filterLevels(core, func(l zapcore.Level) bool { return l == only })
		// zap's sampler ignores levels below Debug.
		if lvl < zapcore.DebugLevel {
			cores = append(cores, newCountingSampler(filtered, cfg.Tick.Duration(), rate.Initial, rate.Thereafter))
			continue
		}
		cores = append(cores, zapcore.NewSamplerWithOptions(
			filtered,
			cfg.Tick.Duration(),
			rate.Initial,
			rate.Thereafter,
		))
	}

	return zapcore.NewTee(cores...)
}

// levelFilterCore restricts a core to the levels accepted by allow.
type levelFilterCore struct {
	zapcore.Core
	allow zap.LevelEnablerFunc
}

func filterLevels(core zapcore.Core, allow zap.LevelEnablerFunc) *levelFilterCore {
	return &levelFilterCore{Core: core, allow: allow}
}

func (c *levelFilterCore) Enabled(lvl zapcore.Level) bool {
	return c.allow(lvl) && c.Core.Enabled(lvl)
}

func (c *levelFilterCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(e.Level) {
		return ce
	}
	return c.Core.Check(e, ce)
}

// With creates a child core that preserves level filtering.
func (c *levelFilterCore) With(fields []zapcore.Field) zapcore.Core {
	return &levelFilterCore{
		Core:  c.Core.With(fields),
		allow: c.allow,
	}
}

// countingSampler logs the first n entries with a given message in each tick,
// then every thereafter-th entry. A thereafter of 0 drops the rest.
type countingSampler struct {
	zapcore.Core
	state *samplerState
}

type samplerState struct {
	tick       time.Duration
	first      int
	thereafter int

	mu     sync.Mutex
	resets time.Time
	counts map[string]int
}

func newCountingSampler(core zapcore.Core, tick time.Duration, first, thereafter int) *countingSampler {
	return &countingSampler{
		Core: core,
		state: &samplerState{
			tick:       tick,
			first:      first,
			thereafter: thereafter,
			counts:     make(map[string]int),
		},
	}
}

func (s *countingSampler) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !s.Enabled(e.Level) {
		return ce
	}
	if !s.state.allow(e.Message, e.Time) {
		return ce
	}
	return s.Core.Check(e, ce)
}

func (s *countingSampler) With(fields []zapcore.Field) zapcore.Core {
	return &countingSampler{Core: s.Core.With(fields), state: s.state}
}

func (st *samplerState) allow(msg string, at time.Time) bool {
	st.mu.Lock()
	defer st.mu.Unlock()

	if at.IsZero() {
		at = time.Now()
	}
	if at.Sub(st.resets) >= st.tick || at.Before(st.resets) {
		st.resets = at
		clear(st.counts)
	}

	st.counts[msg]++
	n := st.counts[msg]
	if n <= st.first {
		return true
	}
	return st.thereafter > 0 && (n-st.first)%st.thereafter == 0
}
