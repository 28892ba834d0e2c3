package covenant

import "github.com/btcsuite/btclog"

var log btclog.Logger

func init() {
	UseLogger(btclog.Disabled)
}

// DisableLog disables all library log output.
func DisableLog() {
	UseLogger(btclog.Disabled)
}

// UseLogger lets a calling application specify which logger to use.
func UseLogger(logger btclog.Logger) {
	log = logger
}
