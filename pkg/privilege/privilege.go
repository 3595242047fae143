// Package privilege acquires elevated rights once, keeps them alive
// for the duration of the pipeline, and releases them on every exit
// path. The renewal heartbeat is an owned background task joined by
// Release; there is no ambient global state.
package privilege

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/masmide/setup/pkg/command"
	"github.com/masmide/setup/pkg/errors"
	"github.com/masmide/setup/pkg/logging"
)

// DefaultRenewInterval is shorter than sudo's default 5-minute
// timestamp timeout, so the grant never lapses mid-pipeline.
const DefaultRenewInterval = 60 * time.Second

// Options configures Acquire. The zero value selects production
// defaults.
type Options struct {
	// RenewInterval between heartbeat refreshes.
	RenewInterval time.Duration

	// Elevated reports whether the process already runs with
	// elevated rights. Defaults to an effective-UID check.
	Elevated func() bool
}

// Token represents an acquired privilege session. A token from an
// already-elevated process is a no-op: Release does nothing and
// Command adds no prefix.
type Token struct {
	sudo    bool
	cancel  context.CancelFunc
	done    chan struct{}
	release sync.Once
}

// Acquire obtains elevated rights. If the process is already running
// elevated it returns a no-op token. Otherwise it validates sudo
// interactively (prompting at most once) and starts the renewal
// heartbeat. Failure to obtain elevation is fatal to the pipeline.
func Acquire(ctx context.Context, runner command.Runner, opts Options) (*Token, error) {
	logger := logging.GetLogger("privilege")

	elevated := opts.Elevated
	if elevated == nil {
		elevated = func() bool { return os.Geteuid() == 0 }
	}
	if elevated() {
		logger.Debug().Msg("Process already elevated, no-op token")
		return &Token{}, nil
	}

	if _, err := runner.LookPath("sudo"); err != nil {
		return nil, errors.Wrap(err, errors.ErrPrivilege, "sudo is required but not on PATH")
	}

	// One interactive validation. The heartbeat below only refreshes
	// the timestamp, it never prompts again.
	if err := runner.RunInteractive(ctx, "sudo", "-v"); err != nil {
		return nil, errors.Wrap(err, errors.ErrPrivilege, "failed to acquire elevated privileges")
	}

	interval := opts.RenewInterval
	if interval <= 0 {
		interval = DefaultRenewInterval
	}

	hbCtx, cancel := context.WithCancel(context.Background())
	token := &Token{
		sudo:   true,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(token.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-hbCtx.Done():
				return
			case <-ticker.C:
				// Non-interactive refresh; a failure here means the
				// grant expired, which the next privileged command
				// will surface.
				if _, err := runner.Run(hbCtx, "sudo", "-n", "-v"); err != nil {
					logger.Warn().Err(err).Msg("Privilege renewal failed")
				}
			}
		}
	}()

	logger.Info().Dur("renewInterval", interval).Msg("Elevated privileges acquired")
	return token, nil
}

// Release stops the renewal heartbeat and waits for it to finish.
// Idempotent; must be invoked on every exit path.
func (t *Token) Release() {
	t.release.Do(func() {
		if t.cancel == nil {
			return
		}
		t.cancel()
		<-t.done
		logger := logging.GetLogger("privilege")
		logger.Debug().Msg("Privilege session released")
	})
}

// Command rewrites an external command so it runs with the acquired
// rights: a sudo prefix when elevation came from sudo, unchanged when
// the process is already elevated.
func (t *Token) Command(name string, args ...string) (string, []string) {
	if !t.sudo {
		return name, args
	}
	return "sudo", append([]string{name}, args...)
}
