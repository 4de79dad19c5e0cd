package main

import (
	"flag"
	"strings"
)

// viewArgs captures flags shared by the view and dump entrypoints.
type viewArgs struct {
	eventsFile      string
	sessionID       string
	resumeLast      bool
	ephemeral       bool
	theme           string
	noLive          bool
	busLog          string
	configOverrides stringSlice
}

func newViewFlagSet(name string) (*flag.FlagSet, *viewArgs) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	args := &viewArgs{}

	fs.StringVar(&args.eventsFile, "events", "", "Path to the JSONL event log (default ~/.narrative/events.jsonl)")
	fs.StringVar(&args.eventsFile, "e", "", "Alias for --events")
	fs.StringVar(&args.sessionID, "session", "", "Session id whose collapse state to use")
	fs.BoolVar(&args.resumeLast, "last", false, "Reuse the most recently updated session")
	fs.BoolVar(&args.ephemeral, "ephemeral", false, "Keep collapse state in memory only")
	fs.StringVar(&args.theme, "theme", "", "Theme override (dark|light|plain)")
	fs.BoolVar(&args.noLive, "no-live", false, "Do not tail the event log for live events")
	fs.StringVar(&args.busLog, "bus-log", "", "Write UI notifications (link clicks, history pages) to a separate log file")
	fs.Var(&args.configOverrides, "c", "Override config value key=value (repeatable)")

	return fs, args
}

// finalizeEvents 允许把事件日志路径作为位置参数传入。
func (v *viewArgs) finalizeEvents(fs *flag.FlagSet) {
	if v.eventsFile == "" && fs.NArg() > 0 {
		v.eventsFile = strings.TrimSpace(fs.Arg(0))
	}
}
