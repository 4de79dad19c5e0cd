package config

import (
	"maps"
	"strconv"
	"strings"

	"narrative-cli/internal/features"
)

// ApplyKVOverrides 应用 -c key=value 覆盖；无法识别或无法解析的项被忽略。
func ApplyKVOverrides(cfg Config, overrides []string) Config {
	cfg.Features = maps.Clone(cfg.Features)
	for _, raw := range overrides {
		parts := strings.SplitN(raw, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		val := strings.TrimSpace(parts[1])
		if name, ok := strings.CutPrefix(key, "features."); ok {
			if b, err := strconv.ParseBool(val); err == nil && features.IsKnown(name) {
				if cfg.Features == nil {
					cfg.Features = map[string]bool{}
				}
				cfg.Features[name] = b
			}
			continue
		}
		switch key {
		case "events_file", "events":
			cfg.EventsFile = val
		case "session_dir":
			cfg.SessionDir = val
		case "theme":
			cfg.Theme = val
		case "stale_policy":
			cfg.StalePolicy = val
		case "follow_threshold":
			if n, err := strconv.Atoi(val); err == nil && n >= 0 {
				cfg.FollowThreshold = n
			}
		case "history_threshold":
			if n, err := strconv.Atoi(val); err == nil && n >= 0 {
				cfg.HistoryThreshold = n
			}
		case "history_page_size", "page_size":
			if n, err := strconv.Atoi(val); err == nil && n > 0 {
				cfg.HistoryPageSize = n
			}
		}
	}
	return cfg
}
