package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger"
	xlogrus "github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/sirupsen/logrus"
	gomidi "gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

func main() {
	os.Exit(run())
}

func run() int {
	ll := xlogrus.DefaultLogrusLogger()
	ll.Formatter = &logrus.TextFormatter{FullTimestamp: true}
	l := xlogrus.New(ll).WithLevel(logger.LevelInfo)
	ctx := logger.CtxWithLogger(context.Background(), l)
	logger.Default = func() logger.Logger {
		return l
	}
	defer belt.Flush(ctx)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	defer gomidi.CloseDriver()

	if err := Root.ExecuteContext(ctx); err != nil {
		logger.Error(ctx, err)
		return 1
	}
	return 0
}
