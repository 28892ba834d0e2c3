package contentkey

import "github.com/btcsuite/btclog"

// log is the package-level logger used by the contentkey package. It
// defaults to the disabled logger so importing applications must opt in.
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
