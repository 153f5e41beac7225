// Package logging provides structured logging with OpenTelemetry integration.
//
// # Overview
//
// Logging package wraps Zap with:
//   - Custom Trace level (-2, below Debug)
//   - Output to stderr and, optionally, OpenTelemetry
//   - Automatic context field injection (trace_id, request.id, tool.name)
//   - Per-level sampling (errors never sampled)
//
// Local output goes to stderr because stdout carries MCP frames when the
// server runs over stdio.
//
// # Usage
//
//	cfg, err := logging.FromSettings(appCfg.Logging)
//	if err != nil {
//	    return err
//	}
//	logger, err := logging.NewLogger(cfg, nil)
//	if err != nil {
//	    return err
//	}
//	defer logger.Sync()
//
//	ctx = logging.WithRequestID(ctx, uuid.NewString())
//	ctx = logging.WithTool(ctx, "read_document")
//	logger.Info(ctx, "tool completed", zap.Duration("duration", d))
//
// Output includes the correlation fields:
//
//	{
//	  "level": "info",
//	  "ts": "2026-01-12T10:15:30.000Z",
//	  "msg": "tool completed",
//	  "service": "studydocs",
//	  "request.id": "0b6f9f0e-3d1c-4d6b-9f57-3f1b0a1c2d3e",
//	  "tool.name": "read_document",
//	  "duration": 0.0021
//	}
//
// # Sampling
//
// Each sampled level has its own budget per tick:
//   - Trace: first 1, drop rest
//   - Debug: first 10, drop rest
//   - Info: first 100, then 1 every 10
//   - Warn: first 100, then 1 every 100
//   - Error+: never sampled
//
// # Testing
//
//	tl := logging.NewTestLogger()
//	tl.Info(ctx, "test message", zap.String("key", "value"))
//	tl.AssertLogged(t, zapcore.InfoLevel, "test message")
//	tl.AssertField(t, "test message", "key", "value")
package logging
