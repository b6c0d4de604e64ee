package market

import (
	"fmt"
	"strings"
)

const (
	KindNSE = "nse"
	KindSim = "sim"
)

// Options selects and configures a Source.
type Options struct {
	Kind    string
	NSE     NSEConfig
	SimSeed uint64
}

// Open builds the source named by opts.Kind.
func Open(opts Options) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Kind)) {
	case "", KindNSE:
		return NewNSE(opts.NSE)
	case KindSim:
		return NewSim(opts.SimSeed), nil
	default:
		return nil, fmt.Errorf("unknown data source %q (want %q or %q)", opts.Kind, KindNSE, KindSim)
	}
}
