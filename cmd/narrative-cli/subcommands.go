package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"narrative-cli/internal/collapse"
	"narrative-cli/internal/config"
	"narrative-cli/internal/events"
	"narrative-cli/internal/features"
	"narrative-cli/internal/grouping"
	"narrative-cli/internal/logger"
	"narrative-cli/internal/narrative"
	"narrative-cli/internal/repl"
	"narrative-cli/internal/staleness"
	"narrative-cli/internal/tui"
	"narrative-cli/internal/tui/render"
)

func viewMain(root rootArgs, args []string) {
	fs, cli := newViewFlagSet("view")
	if err := fs.Parse(args); err != nil {
		fatalf("parse view args: %v", err)
	}
	cli.finalizeEvents(fs)

	rt, err := buildRuntime(root, cli)
	if err != nil {
		fatalf("%v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	live, stop, err := rt.startLive(ctx)
	if err != nil {
		log.Warnf("live tail disabled: %v", err)
	}
	defer stop()

	bus := events.NewBus()
	if cli.busLog != "" {
		entry, closer, resolved, err := logger.SetupComponentFile("events", cli.busLog)
		if err != nil {
			log.Warnf("bus log disabled: %v", err)
		} else {
			defer closer.Close()
			bus.SetLogger(entry)
			log.Infof("bus notifications logged to %s", resolved)
		}
	}
	defer bus.Close()

	res, err := tui.Run(rt.tuiOptions(bus, live))
	if err != nil {
		fatalf("tui exited with error: %v", err)
	}
	log.WithField("session", rt.sessionID).
		Infof("viewer closed: %d events, %d stale", res.Events, res.Stale)
	if rt.sessionID != "" {
		fmt.Printf("session %s\n", rt.sessionID)
	}
}

func dumpMain(root rootArgs, args []string) {
	fs, cli := newViewFlagSet("dump")
	var followLive bool
	var plain bool
	var width int
	fs.BoolVar(&followLive, "follow", false, "Keep printing live events until interrupted")
	fs.BoolVar(&followLive, "f", false, "Alias for --follow")
	fs.BoolVar(&plain, "plain", false, "Print without ANSI styles")
	fs.IntVar(&width, "width", 0, "Wrap width (default $COLUMNS or 80)")
	if err := fs.Parse(args); err != nil {
		fatalf("parse dump args: %v", err)
	}
	cli.finalizeEvents(fs)
	if !followLive {
		cli.noLive = true
	}

	rt, err := buildRuntime(root, cli)
	if err != nil {
		fatalf("%v", err)
	}
	printer := newDumpPrinter(rt, os.Stdout, dumpWidth(width), plain)

	if err := printer.Add(markHistorical(rt.backlog.Events)); err != nil {
		fatalf("write events: %v", err)
	}
	if !followLive {
		if err := printer.Flush(); err != nil {
			fatalf("write events: %v", err)
		}
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	live, stop, err := rt.startLive(ctx)
	if err != nil {
		fatalf("follow %s: %v", rt.store.Path, err)
	}
	defer stop()
	if err := printer.Follow(ctx, live); err != nil {
		fatalf("write events: %v", err)
	}
}

func newDumpPrinter(rt *runtime, w io.Writer, width int, plain bool) *repl.Printer {
	theme := rt.theme
	if plain {
		theme = render.ThemeByName("plain")
	}
	tracker := staleness.New(rt.policy)
	store := collapse.New(rt.kv)
	display := rt.display()
	return repl.NewPrinter(repl.PrinterOptions{
		Scrollback: repl.NewScrollback(repl.ScrollbackOptions{Writer: w, Width: width, Plain: plain}),
		Layout: render.LayoutOptions{
			Theme:        theme,
			Emoji:        display.Emoji,
			LinkPreviews: display.LinkPreviews,
			Focus:        -1,
		},
		Grouping: grouping.Options{
			ShowDivider:   display.Divider,
			SpeechBubbles: display.SpeechBubbles && !theme.SuppressBubbles,
			Collapsed:     store.IsCollapsed,
			Stale:         tracker.EventStale,
		},
	})
}

func markHistorical(evts []narrative.Event) []narrative.Event {
	out := make([]narrative.Event, len(evts))
	for i, e := range evts {
		e.IsHistorical = true
		out[i] = e
	}
	return out
}

func dumpWidth(flagWidth int) int {
	if flagWidth > 0 {
		return flagWidth
	}
	if n, err := strconv.Atoi(strings.TrimSpace(os.Getenv("COLUMNS"))); err == nil && n > 0 {
		return n
	}
	return 80
}

// appendMain 把 JSON 事件追加到事件日志；参数为空时逐行读取 stdin。
// 缺少 event_id 的事件由 Decode 分配 uuid。
func appendMain(root rootArgs, args []string) {
	fs := flag.NewFlagSet("append", flag.ExitOnError)
	var eventsFile string
	var overrides stringSlice
	fs.StringVar(&eventsFile, "events", "", "Path to the JSONL event log")
	fs.Var(&overrides, "c", "Override config value key=value (repeatable)")
	if err := fs.Parse(args); err != nil {
		fatalf("parse append args: %v", err)
	}
	cfg, err := resolveConfig(root, &viewArgs{eventsFile: eventsFile, configOverrides: overrides})
	if err != nil {
		fatalf("%v", err)
	}
	store, err := eventsStore(cfg)
	if err != nil {
		fatalf("%v", err)
	}

	var src io.Reader = os.Stdin
	if fs.NArg() > 0 {
		src = strings.NewReader(strings.Join(fs.Args(), "\n"))
	}
	n, err := appendEvents(store, src)
	if err != nil {
		fatalf("append events: %v", err)
	}
	fmt.Printf("appended %d event(s) to %s\n", n, store.Path)
}

type eventAppender interface {
	Append(evt narrative.Event) error
}

func appendEvents(store eventAppender, r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	count := 0
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		evt, err := narrative.Decode([]byte(line))
		if errors.Is(err, narrative.ErrNotNarrative) {
			log.Debugf("line %d: skipping presentation event", lineNo)
			continue
		}
		if err != nil {
			return count, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if err := store.Append(evt); err != nil {
			return count, err
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		return count, err
	}
	if count == 0 {
		return 0, errors.New("no events provided")
	}
	return count, nil
}

func featuresMain(root rootArgs, args []string) {
	var overrides stringSlice
	var save bool
	fs := flag.NewFlagSet("features", flag.ExitOnError)
	fs.Var(&overrides, "c", "Override config value key=value (repeatable)")
	fs.BoolVar(&save, "save", false, "Persist the effective feature flags to the config file")
	if err := fs.Parse(args); err != nil {
		fatalf("parse features args: %v", err)
	}
	cfg, err := resolveConfig(root, &viewArgs{configOverrides: overrides})
	if err != nil {
		fatalf("%v", err)
	}
	writeFeatures(os.Stdout, cfg)
	if save {
		if err := config.Save(root.cfgPath, cfg); err != nil {
			fatalf("save config: %v", err)
		}
		fmt.Printf("saved to %s\n", cfg.Source)
	}
}

func writeFeatures(w io.Writer, cfg config.Config) {
	for _, spec := range features.Specs {
		fmt.Fprintf(w, "%s\t%s\t%t\n", spec.Key, spec.Stage, cfg.FeatureEnabled(spec.Key))
	}
}

func sessionsMain(root rootArgs, args []string) {
	var overrides stringSlice
	fs := flag.NewFlagSet("sessions", flag.ExitOnError)
	fs.Var(&overrides, "c", "Override config value key=value (repeatable)")
	if err := fs.Parse(args); err != nil {
		fatalf("parse sessions args: %v", err)
	}
	cfg, err := resolveConfig(root, &viewArgs{configOverrides: overrides})
	if err != nil {
		fatalf("%v", err)
	}
	store, err := sessionStore(cfg)
	if err != nil {
		fatalf("%v", err)
	}
	ids, err := store.ListIDs()
	if err != nil {
		fatalf("list sessions: %v", err)
	}
	if len(ids) == 0 {
		fmt.Println("no sessions")
		return
	}
	for _, id := range ids {
		rec, err := store.Load(id)
		if err != nil {
			fmt.Printf("%s\t(unreadable)\n", id)
			continue
		}
		collapsed := len(collapse.New(mapKV(rec.Values)).Keys())
		fmt.Printf("%s\t%s\t%d collapsed\n", id, rec.Updated.Format("2006-01-02 15:04:05"), collapsed)
	}
}

// mapKV 是会话记录的只读视图。
type mapKV map[string]string

func (m mapKV) Get(key string) (string, bool, error) {
	v, ok := m[key]
	return v, ok, nil
}

func (m mapKV) Set(string, string) error { return errors.New("read-only session view") }
func (m mapKV) Remove(string) error      { return errors.New("read-only session view") }
