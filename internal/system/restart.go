// Package system restarts the process after a restart command or a fatal
// transport fault.
package system

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"go.uber.org/zap"
)

// Restart modes
const (
	ModeExec = "exec"
	ModeExit = "exit"
)

var ErrUnknownMode = errors.New("system: unknown restart mode")

// Restarter replaces the running process. Restart only returns on failure.
type Restarter struct {
	mode string
	log  *zap.Logger

	executable func() (string, error)
	exec       func(argv0 string, argv, envv []string) error
	exit       func(code int)
}

func NewRestarter(mode string, log *zap.Logger) (*Restarter, error) {
	switch mode {
	case "":
		mode = ModeExec
	case ModeExec, ModeExit:
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownMode, mode)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Restarter{
		mode:       mode,
		log:        log.Named("system"),
		executable: os.Executable,
		exec:       syscall.Exec,
		exit:       os.Exit,
	}, nil
}

// Restart re-executes the current binary with the same arguments and
// environment, so startup runs again from scratch. In exit mode, or when exec
// fails, the process exits with status 1 for its supervisor to restart.
func (r *Restarter) Restart(reason string) error {
	_ = r.log.Sync()
	if r.mode == ModeExec {
		path, err := r.executable()
		if err == nil {
			r.log.Info("restarting", zap.String("reason", reason), zap.String("path", path))
			err = r.exec(path, os.Args, os.Environ())
		}
		r.log.Error("re-exec failed, exiting", zap.Error(err))
	} else {
		r.log.Info("exiting for restart", zap.String("reason", reason))
	}
	r.exit(1)
	return errors.New("system: restart did not take effect")
}
