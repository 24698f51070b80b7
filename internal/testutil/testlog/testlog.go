// Package testlog configures logging for tests that want readable
// output when run with -v.
package testlog

import (
	"testing"

	"github.com/rs/zerolog/log"

	"github.com/hostyorkshire/MCWB/internal/logging"
)

func Start(t *testing.T) {
	t.Helper()
	logging.ConfigureTests()
	log.Info().Str("test", t.Name()).Msg("starting")
}
