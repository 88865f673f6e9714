package grandpa

import "github.com/sirupsen/logrus"

// log is the package-level field logger, tagged with a "prefix" field so log
// lines can be grepped per-subsystem.
var log = logrus.WithField("prefix", "grandpa")

// logLevel picks Debug during initial sync and Info otherwise: avoid
// spamming info-level logs while catching up from genesis.
func logLevel(initialSync bool) logrus.Level {
	if initialSync {
		return logrus.DebugLevel
	}
	return logrus.InfoLevel
}

// logAt emits msg with fields at Debug or Info depending on initialSync.
func logAt(initialSync bool, msg string, fields logrus.Fields) {
	entry := log.WithFields(fields)
	if logLevel(initialSync) == logrus.DebugLevel {
		entry.Debug(msg)
	} else {
		entry.Info(msg)
	}
}
