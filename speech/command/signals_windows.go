//go:build windows

package command

import (
	"errors"
	"os"
)

var errNoJobControl = errors.New("process suspension is not supported on windows")

func suspendProcess(*os.Process) error {
	return errNoJobControl
}

func resumeProcess(*os.Process) error {
	return errNoJobControl
}
