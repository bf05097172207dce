package ui

import (
	"os"
	"testing"

	"go.uber.org/zap"

	"github.com/vanderheijden86/threatmap/pkg/debug"
)

func TestMain(m *testing.M) {
	// Snapshots default to the state directory; keep them out of $HOME.
	dir, err := os.MkdirTemp("", "threatmap-ui-")
	if err != nil {
		panic(err)
	}
	os.Setenv("XDG_STATE_HOME", dir)
	debug.SetLogger(zap.NewNop())

	code := m.Run()

	os.RemoveAll(dir)
	os.Exit(code)
}
