package main

import (
	"os"

	"narrative-cli/internal/logger"
)

var log = logger.Named("cli")

func main() {
	logger.Configure()
	if logFile, _, err := logger.SetupFile(logger.DefaultLogPath); err != nil {
		log.Warnf("failed to initialize log file: %v", err)
	} else {
		defer logFile.Close()
	}

	root, rest, err := parseRootArgs(os.Args[1:])
	if err != nil {
		fatalf("parse args: %v", err)
	}
	if len(rest) > 0 {
		switch rest[0] {
		case "view":
			viewMain(root, rest[1:])
			return
		case "dump":
			dumpMain(root, rest[1:])
			return
		case "append":
			appendMain(root, rest[1:])
			return
		case "features":
			featuresMain(root, rest[1:])
			return
		case "sessions":
			sessionsMain(root, rest[1:])
			return
		}
	}

	viewMain(root, rest)
}
