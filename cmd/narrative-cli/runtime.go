package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"narrative-cli/internal/collapse"
	"narrative-cli/internal/config"
	"narrative-cli/internal/events"
	"narrative-cli/internal/features"
	"narrative-cli/internal/history"
	"narrative-cli/internal/narrative"
	"narrative-cli/internal/session"
	"narrative-cli/internal/staleness"
	"narrative-cli/internal/tui"
	"narrative-cli/internal/tui/render"
	follow "narrative-cli/internal/viewport"
)

// runtime 汇总一次 view/dump 运行所需的全部组件。
type runtime struct {
	cfg       config.Config
	store     *history.Store
	backlog   history.Backlog
	pager     *history.Pager
	sessionID string
	kv        collapse.KV
	policy    staleness.Policy
	theme     render.Theme
}

// resolveConfig 依次应用配置文件、根级 -c、子命令 -c，最后是显式参数。
func resolveConfig(root rootArgs, v *viewArgs) (config.Config, error) {
	cfg, err := config.Load(root.cfgPath)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	var sub []string
	if v != nil {
		sub = v.configOverrides
	}
	cfg = config.ApplyKVOverrides(cfg, prependOverrides(root.overrides, sub))
	if v != nil {
		if strings.TrimSpace(v.eventsFile) != "" {
			cfg.EventsFile = strings.TrimSpace(v.eventsFile)
		}
		if strings.TrimSpace(v.theme) != "" {
			cfg.Theme = strings.TrimSpace(v.theme)
		}
		if v.noLive {
			cfg = config.ApplyKVOverrides(cfg, []string{"features." + features.LiveTail + "=false"})
		}
	}
	return cfg, nil
}

func eventsStore(cfg config.Config) (*history.Store, error) {
	path := strings.TrimSpace(cfg.EventsFile)
	if path == "" {
		p, err := history.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return &history.Store{Path: path}, nil
}

func sessionStore(cfg config.Config) (*session.Store, error) {
	if dir := strings.TrimSpace(cfg.SessionDir); dir != "" {
		return &session.Store{Dir: dir}, nil
	}
	return session.NewDefault()
}

// openScope 返回折叠状态所用的 KV；--ephemeral 或会话目录不可用时退回内存。
// 非法的 --session id 直接报错。
func openScope(cfg config.Config, v *viewArgs) (collapse.KV, string, error) {
	if v.ephemeral {
		return session.NewMemory(), "", nil
	}
	store, err := sessionStore(cfg)
	if err != nil {
		log.Warnf("session store unavailable, using memory: %v", err)
		return session.NewMemory(), "", nil
	}
	id := strings.TrimSpace(v.sessionID)
	if id == "" && v.resumeLast {
		rec, err := store.Last()
		if err != nil {
			log.Infof("no previous session to resume: %v", err)
		} else {
			id = rec.ID
		}
	}
	scope, err := store.Open(id)
	if errors.Is(err, session.ErrInvalidID) {
		return nil, "", err
	}
	if err != nil {
		log.Warnf("open session %q failed, using memory: %v", id, err)
		return session.NewMemory(), "", nil
	}
	return scope, scope.ID(), nil
}

func buildRuntime(root rootArgs, v *viewArgs) (*runtime, error) {
	cfg, err := resolveConfig(root, v)
	if err != nil {
		return nil, err
	}
	policy, err := staleness.ParsePolicy(cfg.StalePolicy)
	if err != nil {
		return nil, err
	}
	store, err := eventsStore(cfg)
	if err != nil {
		return nil, err
	}
	backlog, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load events %s: %w", store.Path, err)
	}
	kv, id, err := openScope(cfg, v)
	if err != nil {
		return nil, err
	}
	rt := &runtime{
		cfg:       cfg,
		store:     store,
		backlog:   backlog,
		pager:     history.NewPager(backlog.Events, cfg.HistoryPageSize),
		sessionID: id,
		kv:        kv,
		policy:    policy,
		theme:     render.ThemeByName(cfg.Theme),
	}
	log.WithField("events", store.Path).
		WithField("session", id).
		Infof("loaded %d backlog events", len(backlog.Events))
	return rt, nil
}

func (rt *runtime) display() tui.Display {
	return tui.Display{
		SpeechBubbles: rt.cfg.FeatureEnabled(features.SpeechBubbles),
		Emoji:         rt.cfg.FeatureEnabled(features.Emoji),
		Divider:       rt.cfg.FeatureEnabled(features.DisconnectDivider),
		LinkPreviews:  rt.cfg.FeatureEnabled(features.LinkPreviews),
	}
}

func (rt *runtime) followConfig() follow.Config {
	c := follow.DefaultConfig()
	if rt.cfg.FollowThreshold >= 0 {
		c.FollowThreshold = rt.cfg.FollowThreshold
	}
	if rt.cfg.HistoryThreshold >= 0 {
		c.HistoryThreshold = rt.cfg.HistoryThreshold
	}
	return c
}

// startLive 在 live_tail 开启时从 backlog 末尾开始追踪事件日志。
// 返回 nil 通道表示不追踪。
func (rt *runtime) startLive(ctx context.Context) (<-chan []narrative.Event, func(), error) {
	if !rt.cfg.FeatureEnabled(features.LiveTail) {
		return nil, func() {}, nil
	}
	w, err := history.NewWatcher(rt.store.Path, rt.backlog.Offset)
	if err != nil {
		return nil, func() {}, err
	}
	go w.Run(ctx)
	stop := func() {
		if err := w.Close(); err != nil {
			log.Warnf("close watcher: %v", err)
		}
	}
	return w.Events(), stop, nil
}

func (rt *runtime) tuiOptions(bus *events.Bus, live <-chan []narrative.Event) tui.Options {
	title := rt.store.Path
	if rt.sessionID != "" {
		title = fmt.Sprintf("%s · %s", title, shortID(rt.sessionID))
	}
	return tui.Options{
		Initial:  rt.pager.Latest(),
		History:  rt.pager,
		Live:     live,
		Collapse: collapse.New(rt.kv),
		Tracker:  staleness.New(rt.policy),
		Bus:      bus,
		Theme:    rt.theme,
		Display:  rt.display(),
		Follow:   rt.followConfig(),
		Title:    title,
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
