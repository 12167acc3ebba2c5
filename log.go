package tilemap

import (
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("pkg", "tilemap")

// SetLogger routes this package's logs through `l`
func SetLogger(l *logrus.Logger) {
	log = l.WithField("pkg", "tilemap")
}
