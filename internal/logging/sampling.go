package logging

import (
	"go.uber.org/zap/zapcore"
)

// newSampledCore wraps core with per-level sampling. Each level below error
// listed in cfg.Levels gets its own sampler; error and above, and levels
// without an entry, always pass through.
func newSampledCore(core zapcore.Core, cfg SamplingConfig) zapcore.Core {
	if !cfg.Enabled {
		return core
	}

	sampled := func(lvl zapcore.Level) bool {
		_, ok := cfg.Levels[lvl]
		return ok && lvl < zapcore.ErrorLevel
	}
	cores := []zapcore.Core{
		&levelFilterCore{Core: core, allow: func(lvl zapcore.Level) bool { return !sampled(lvl) }},
	}
	for lvl, lc := range cfg.Levels {
		if !sampled(lvl) {
			continue
		}
		only := lvl
		cores = append(cores, zapcore.NewSamplerWithOptions(
			&levelFilterCore{Core: core, allow: func(l zapcore.Level) bool { return l == only }},
			cfg.Tick.Duration(),
			lc.Initial,
			lc.Thereafter,
		))
	}
	return zapcore.NewTee(cores...)
}

// levelFilterCore passes only the levels allow accepts.
type levelFilterCore struct {
	zapcore.Core
	allow func(zapcore.Level) bool
}

func (c *levelFilterCore) Enabled(lvl zapcore.Level) bool {
	return c.allow(lvl) && c.Core.Enabled(lvl)
}

func (c *levelFilterCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.allow(e.Level) {
		return ce
	}
	return c.Core.Check(e, ce)
}

// With creates a child core that keeps the filter.
func (c *levelFilterCore) With(fields []zapcore.Field) zapcore.Core {
	return &levelFilterCore{Core: c.Core.With(fields), allow: c.allow}
}
