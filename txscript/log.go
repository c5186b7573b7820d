package txscript

import "github.com/btcsuite/btclog"

// log is the package-level logger, disabled until a caller installs one
// via UseLogger, matching the teacher's own lnwallet/log.go pattern. No
// code in this package currently writes to it.
var log btclog.Logger

func init() {
	DisableLog()
}

// DisableLog disables all library log output. Logging is disabled by
// default until UseLogger is called.
func DisableLog() {
	log = btclog.Disabled
}

// UseLogger uses logger to output package logging information.
func UseLogger(logger btclog.Logger) {
	log = logger
}
