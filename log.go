package modelcache

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// logger is the package-wide logger used by every Cache; SetLogLevel and
// SetLogOutput configure it. Never fatal: internal integrity violations
// (e.g. a device release by a non-owning caller) are logged and
// swallowed, per the error handling design.
var logger = logrus.New()

func init() {
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.InfoLevel)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
}

// SetLogLevel sets the level of the package default logger.
func SetLogLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	logger.SetLevel(lvl)
	return nil
}

// SetLogOutput redirects the package default logger.
func SetLogOutput(w io.Writer) {
	logger.SetOutput(w)
}

func withKey(key Key) *logrus.Entry {
	return logger.WithField("key", key.String())
}

func withDevice(device DeviceID) *logrus.Entry {
	return logger.WithField("device", string(device))
}
