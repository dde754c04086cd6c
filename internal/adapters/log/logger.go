package log

import (
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/bft-labs/batchq/internal/ports"
	pkglog "github.com/bft-labs/batchq/pkg/log"
)

// Output formats accepted by New.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
	FormatNone    = "none"
)

// New builds a logger writing to out in the given format, discarding
// messages below level. An empty format means FormatConsole.
func New(format, level string, out io.Writer) (ports.Logger, error) {
	lvl := pkglog.ParseLevel(level)

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatConsole:
		return pkglog.NewConsoleAdapter(out, lvl), nil
	case FormatJSON:
		logger := zerolog.New(out).Level(lvl).With().Timestamp().Logger()
		return pkglog.NewZerologAdapterWithLogger(logger), nil
	case FormatNone:
		return ports.NoopLogger{}, nil
	default:
		return nil, fmt.Errorf("unknown log format %q (want %s, %s or %s)", format, FormatConsole, FormatJSON, FormatNone)
	}
}
