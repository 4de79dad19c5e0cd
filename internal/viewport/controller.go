// Package viewport 决定视口是跟随最新内容还是停留在用户浏览的位置。
//
// Controller 不接触任何终端或 DOM：宿主把滚动、增长、前插与尺寸变化
// 转换成方法调用，再执行返回的 Action。
package viewport

import "narrative-cli/internal/logger"

var log = logger.Named("viewport")

// State 是视口的两种状态。
type State int

const (
	// Following 每次更新都贴底。
	Following State = iota
	// Browsing 用户离开了底部，不再自动滚动。
	Browsing
)

func (s State) String() string {
	if s == Browsing {
		return "browsing"
	}
	return "following"
}

// Config 的单位由宿主决定（终端行或像素）。
type Config struct {
	// FollowThreshold 距底部超过该距离即进入 Browsing。
	FollowThreshold int
	// HistoryThreshold 距顶部不超过该距离时请求加载更早的历史。
	HistoryThreshold int
}

// DefaultConfig 以终端行为单位。
func DefaultConfig() Config {
	return Config{FollowThreshold: 3, HistoryThreshold: 1}
}

// Sample 是一次滚动位置采样。
type Sample struct {
	Offset         int
	ViewportHeight int
	ContentHeight  int
}

// DistanceFromBottom 返回视口底边到内容底边的距离，不小于 0。
func (s Sample) DistanceFromBottom() int {
	d := s.ContentHeight - (s.Offset + s.ViewportHeight)
	if d < 0 {
		return 0
	}
	return d
}

func (s Sample) bottomOffset() int {
	off := s.ContentHeight - s.ViewportHeight
	if off < 0 {
		return 0
	}
	return off
}

// Action 由宿主执行：Scroll 为真时把滚动位置设为 Offset；
// LoadHistory 为真时发起一次历史请求。
type Action struct {
	Scroll      bool
	Offset      int
	LoadHistory bool
}

// Controller 是视口状态机，只在宿主的事件循环中调用。
type Controller struct {
	cfg       Config
	state     State
	last      Sample
	exhausted bool
}

// New creates a controller in the Following state.
func New(cfg Config) *Controller {
	if cfg.FollowThreshold < 0 {
		cfg.FollowThreshold = 0
	}
	if cfg.HistoryThreshold < 0 {
		cfg.HistoryThreshold = 0
	}
	return &Controller{cfg: cfg, state: Following}
}

// State returns the current state.
func (c *Controller) State() State { return c.state }

// ShowJumpToNow 在 Browsing 时为真，宿主据此显示“回到最新”入口。
func (c *Controller) ShowJumpToNow() bool { return c.state == Browsing }

// Last returns the most recent sample, adjusted by applied actions.
func (c *Controller) Last() Sample { return c.last }

// SetHistoryExhausted 历史源耗尽后不再发出加载请求。
func (c *Controller) SetHistoryExhausted(exhausted bool) { c.exhausted = exhausted }

// OnScrollSample 处理一次滚动采样。
// historyInFlight 由宿主提供，用于避免重复的历史请求。
func (c *Controller) OnScrollSample(s Sample, historyInFlight bool) Action {
	c.last = s
	if c.state == Following && s.DistanceFromBottom() > c.cfg.FollowThreshold {
		c.setState(Browsing)
	}
	var act Action
	if s.Offset <= c.cfg.HistoryThreshold && !historyInFlight && !c.exhausted {
		act.LoadHistory = true
	}
	return act
}

// OnContentGrew 在分组列表变长、布局完成后调用。
func (c *Controller) OnContentGrew(contentHeight int) Action {
	c.last.ContentHeight = contentHeight
	if c.state != Following {
		return Action{}
	}
	return c.toBottom()
}

// OnResize 在容器尺寸变化后调用；跟随状态下重新贴底。
func (c *Controller) OnResize(viewportHeight int) Action {
	c.last.ViewportHeight = viewportHeight
	if c.state != Following {
		return Action{}
	}
	return c.toBottom()
}

// OnHistoryPrepended 在更早的内容插入到视口上方之后调用。
// Browsing 时滚动位置前移 heightDelta，使可见内容保持不动。
func (c *Controller) OnHistoryPrepended(heightDelta int) Action {
	if heightDelta < 0 {
		heightDelta = 0
	}
	c.last.ContentHeight += heightDelta
	if c.state == Following {
		return c.toBottom()
	}
	c.last.Offset += heightDelta
	return Action{Scroll: true, Offset: c.last.Offset}
}

// JumpToNow 是回到 Following 的唯一途径，同时滚动到底部。
func (c *Controller) JumpToNow() Action {
	c.setState(Following)
	return c.toBottom()
}

func (c *Controller) toBottom() Action {
	c.last.Offset = c.last.bottomOffset()
	return Action{Scroll: true, Offset: c.last.Offset}
}

func (c *Controller) setState(s State) {
	if c.state == s {
		return
	}
	log.WithField("from", c.state.String()).WithField("to", s.String()).Debug("viewport state changed")
	c.state = s
}
