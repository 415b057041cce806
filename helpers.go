package main

import (
	"encoding/json"
	"log"
	"os"

	"github.com/sirupsen/logrus"
)

func endIfErr(e error) {
	if e != nil {
		eLog := log.New(os.Stderr, "", 0)
		eLog.Fatalln(e)
	}
}

func logOutput(v interface{}) {
	out, err := json.Marshal(v)
	endIfErr(err)

	oLog := log.New(os.Stdout, "", 0)
	oLog.Println(string(out))
}

func newLogger(level string, format string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	lvl, err := logrus.ParseLevel(level)
	endIfErr(err)
	logger.SetLevel(lvl)

	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return logger
}
