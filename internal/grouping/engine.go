package grouping

import "narrative-cli/internal/narrative"

// Group 单次前向扫描（向后看一个事件）把事件切分为渲染组。
// 对任意有限输入（包括空列表）都返回结果，不会 panic。
func Group(events []narrative.Event, opts Options) []RenderGroup {
	if len(events) == 0 {
		return nil
	}
	groups := make([]RenderGroup, 0, len(events))
	start := 0
	for i := range events {
		last := i == len(events)-1
		if !last && continuesRun(events[i], events[i+1]) {
			continue
		}
		g := classify(events[start:i+1], opts)
		g.Stale = groupStale(g.Events, opts.Stale)
		if opts.ShowDivider && len(groups) > 0 {
			prev := groups[len(groups)-1]
			g.DividerBefore = prev.Last().IsHistorical && !g.First().IsHistorical
		}
		groups = append(groups, g)
		start = i + 1
	}
	return groups
}

func continuesRun(cur, next narrative.Event) bool {
	return cur.NoNewline || narrative.SameHintGroup(cur, next)
}

func classify(run []narrative.Event, opts Options) RenderGroup {
	// 复制切片头，避免调用方后续 append 改写组内事件。
	members := append([]narrative.Event(nil), run...)
	first := members[0]

	if len(members) == 1 && first.PresentationHint == "" {
		return RenderGroup{Kind: KindSingle, Events: members}
	}
	if sharesHint(members) {
		return hintGroup(members, opts)
	}
	return RenderGroup{Kind: KindNoNewlineRun, Events: members, Merged: mergeLine(members)}
}

func sharesHint(members []narrative.Event) bool {
	hint, gid := members[0].PresentationHint, members[0].GroupID
	if hint == "" {
		return false
	}
	for _, e := range members[1:] {
		if e.PresentationHint != hint || e.GroupID != gid {
			return false
		}
	}
	return true
}

func hintGroup(members []narrative.Event, opts Options) RenderGroup {
	first := members[0]
	g := RenderGroup{
		Kind:    KindHintGroup,
		Events:  members,
		Hint:    first.PresentationHint,
		GroupID: first.GroupID,
	}
	if opts.SpeechBubbles && isSpeech(members) {
		g.Bubble = mergeSpeech(members)
		return g
	}
	if first.IsLook() {
		g.Collapsible = true
		g.CollapseKey = first.ID
		g.Title = first.Metadata.DobjName
		if opts.Collapsed != nil {
			g.Collapsed = opts.Collapsed(g.CollapseKey)
		}
	}
	return g
}

func isSpeech(members []narrative.Event) bool {
	if members[0].PresentationHint != narrative.HintSpeechBubble {
		return false
	}
	for _, e := range members {
		if !e.HasSpeech() {
			return false
		}
	}
	return true
}

func groupStale(members []narrative.Event, stale func(narrative.Event) bool) bool {
	if stale == nil {
		return false
	}
	for _, e := range members {
		if stale(e) {
			return true
		}
	}
	return false
}
