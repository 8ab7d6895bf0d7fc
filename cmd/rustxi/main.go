// Command rustxi is a transactional, jit-based REPL. Every accepted
// snippet becomes part of a committed call graph; every rejected one
// leaves no trace, because it never ran anywhere but a disposable process.
package main

import (
	"os"
	"runtime"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rustxi-go/rustxi/internal/adminhttp"
	"github.com/rustxi-go/rustxi/internal/choreography"
	"github.com/rustxi-go/rustxi/internal/compile"
	"github.com/rustxi-go/rustxi/internal/config"
	"github.com/rustxi-go/rustxi/internal/events"
	"github.com/rustxi-go/rustxi/internal/visor"
)

func main() {
	role := parseHiddenRoleFlag(os.Args[1:])
	cfg := config.Load()

	if cfg.ForceSingleProc {
		runtime.GOMAXPROCS(1)
	}

	log := newLogger(cfg.LogLevel).Named(string(role))
	defer log.Sync()

	runner := compile.Stub{}

	switch role {
	case roleCur:
		env := choreography.InheritEnv(runner, log)
		choreography.RunCur(env)
	case roleTry:
		env := choreography.InheritEnv(runner, log)
		choreography.RunTry(env)
	default:
		runVisor(cfg, log)
	}
}

type role string

const (
	roleVisor role = "visor"
	roleCur   role = "cur"
	roleTry   role = "try"
)

// parseHiddenRoleFlag looks for "-rustxi-role=<value>" anywhere in args and
// returns the matching role, defaulting to roleVisor. This is intercepted
// before any other flag parsing, in the style of LXD's hidden forkexec
// subcommand: a user invoking `rustxi` directly never sees or needs it.
func parseHiddenRoleFlag(args []string) role {
	const prefix = choreography.RoleFlag + "="
	for _, a := range args {
		if strings.HasPrefix(a, prefix) {
			switch role(strings.TrimPrefix(a, prefix)) {
			case roleCur:
				return roleCur
			case roleTry:
				return roleTry
			}
		}
	}
	return roleVisor
}

func newLogger(level string) *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.TimeKey = ""
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.DisableStacktrace = true
	cfg.DisableCaller = true

	switch level {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	log, err := cfg.Build()
	if err != nil {
		// Logging setup itself failed; there is nothing better to log this
		// to, so fall back to a no-op logger rather than crash the REPL
		// over an observability knob.
		return zap.NewNop()
	}
	return log
}

func runVisor(cfg config.Config, log *zap.Logger) {
	var pub *events.Publisher
	if cfg.EventsRedisAddr != "" {
		pub = events.NewPublisher(cfg.EventsRedisAddr, cfg.EventsRedisDB, log)
		defer pub.Close()
	}

	v, err := visor.New(log, os.Stdin, os.Stdout, func(code string, committed bool) {
		if pub != nil {
			pub.PublishRound(code, committed)
		}
	})
	if err != nil {
		log.Error("visor: startup failed", zap.Error(err))
		os.Exit(1)
	}

	if cfg.AdminAddr != "" {
		srv := adminhttp.New(log, v)
		go srv.Run(cfg.AdminAddr)
	}

	if err := v.Run(); err != nil {
		log.Error("visor: exited with error", zap.Error(err))
		os.Exit(1)
	}
}
