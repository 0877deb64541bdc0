package config

import (
	"os"

	"github.com/sirupsen/logrus"
)

var logg *logrus.Logger

func GetLogger() *logrus.Logger {
	return logg
}

func init() {
	logg = logrus.New()
	logg.SetFormatter(&logrus.JSONFormatter{})
	logg.SetOutput(os.Stdout)
	if os.Getenv("APP_ENV") == "production" {
		logg.SetLevel(logrus.WarnLevel)
	} else {
		logg.SetLevel(logrus.InfoLevel)
	}
}
