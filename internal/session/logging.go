package session

import "narrative-cli/internal/logger"

var log = logger.Named("session")
