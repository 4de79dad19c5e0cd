package events

import "fmt"

// LinkClicked 表示读者点击了某条消息内的链接，驱动陈旧标记。
type LinkClicked struct {
	EventID string
	URL     string
}

// HistoryLoaded 在一页历史事件前插完成后发出。
type HistoryLoaded struct {
	Count     int
	Exhausted bool
}

// LiveEventsArrived 在实时事件追加后发出。
type LiveEventsArrived struct {
	Count int
}

func typeName(evt any) string {
	switch evt.(type) {
	case LinkClicked, *LinkClicked:
		return "link.clicked"
	case HistoryLoaded, *HistoryLoaded:
		return "history.loaded"
	case LiveEventsArrived, *LiveEventsArrived:
		return "live.arrived"
	default:
		return fmt.Sprintf("%T", evt)
	}
}
