package features

// Stage 描述功能开关所处的生命周期阶段。
type Stage string

const (
	StageStable       Stage = "stable"
	StageBeta         Stage = "beta"
	StageExperimental Stage = "experimental"
	StageDeprecated   Stage = "deprecated"
	StageRemoved      Stage = "removed"
)

// 已知功能键。
const (
	SpeechBubbles     = "speech_bubbles"
	Emoji             = "emoji"
	DisconnectDivider = "disconnect_divider"
	LiveTail          = "live_tail"
	LinkPreviews      = "link_previews"
)

// Spec describes a feature flag exposed by the CLI.
type Spec struct {
	Key            string
	Stage          Stage
	DefaultEnabled bool
}

// Specs lists every feature flag in display order.
var Specs = []Spec{
	{Key: SpeechBubbles, Stage: StageStable, DefaultEnabled: true},
	{Key: Emoji, Stage: StageStable, DefaultEnabled: true},
	{Key: DisconnectDivider, Stage: StageStable, DefaultEnabled: true},
	{Key: LiveTail, Stage: StageBeta, DefaultEnabled: true},
	{Key: LinkPreviews, Stage: StageExperimental, DefaultEnabled: false},
}

var known = func() map[string]Spec {
	m := make(map[string]Spec, len(Specs))
	for _, spec := range Specs {
		m[spec.Key] = spec
	}
	return m
}()

// IsKnown reports whether the feature key is recognized.
func IsKnown(key string) bool {
	_, ok := known[key]
	return ok
}

// StageFor returns the lifecycle stage for a feature, defaulting to experimental.
func StageFor(key string) Stage {
	if spec, ok := known[key]; ok {
		return spec.Stage
	}
	return StageExperimental
}

// DefaultEnabled reports the default value for the given feature key.
func DefaultEnabled(key string) bool {
	if spec, ok := known[key]; ok {
		return spec.DefaultEnabled
	}
	return false
}
