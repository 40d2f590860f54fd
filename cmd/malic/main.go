// Command malic renders a textured scene with the malic engine: two quads,
// or an OBJ model when MALIC_MODEL is set.
package main

import (
	"os"
	"runtime"

	"github.com/cockroachdb/errors"
	"github.com/malicengine/malic/engine"
	"github.com/sirupsen/logrus"
)

func init() {
	// SDL and the Vulkan presentation calls must stay on the main thread
	runtime.LockOSThread()
}

func main() {
	if err := run(); err != nil {
		logrus.Errorf("%+v", err)
		os.Exit(1)
	}
}

func run() error {
	s, err := loadSettings(".env")
	if err != nil {
		return err
	}
	logrus.SetLevel(s.LogLevel)
	log := logrus.NewEntry(logrus.StandardLogger()).WithField("component", "malic")

	config := engine.DefaultConfig()
	config.ApplicationName = s.Title
	config.Window.Title = s.Title
	config.Window.Width = s.Width
	config.Window.Height = s.Height
	config.EnableValidation = s.Validation
	config.Logger = log

	state := newAppState(s, log)
	e := engine.New(config, state)

	err = e.Run(entry, update)
	err = errors.CombineErrors(err, state.destroy())
	return errors.CombineErrors(err, e.ShutDown())
}
