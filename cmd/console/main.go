package main

import (
	"os"

	"github.com/siebog/console/internal/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logger.Named("cli").WithError(err).Error("console exited")
		os.Exit(1)
	}
}
