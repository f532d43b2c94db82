package launcher

import (
	"regexp"
	"strings"
	"time"

	"launcherd/pkg/types"
)

// Line classification is table-driven so tests can enumerate the groups and
// verify first-match-wins ordering. The group order is a fixed design
// decision: error is checked before warning, warning before success, and so
// on. Do not reorder.

type patternGroup struct {
	Type     types.OutputType
	Severity int
	Patterns []*regexp.Regexp
}

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, regexp.MustCompile(`(?i)`+e))
	}
	return out
}

// patternGroups maps line content to an output type, first match wins.
var patternGroups = []patternGroup{
	{types.OutputError, 8, compileAll(
		`\berror\b`,
		`\bexception\b`,
		`\btraceback\b`,
		`\bfail(ed|ure)?\b`,
		`\bfatal\b`,
		`\bcritical\b`,
		`\bpanic\b`,
		`\bdenied\b`,
		`\brefused\b`,
		`\baborted\b`,
	)},
	{types.OutputWarning, 5, compileAll(
		`\bwarn(ing)?\b`,
		`\bdeprecated\b`,
		`\bcaution\b`,
		`\bretry(ing)?\b`,
		`\btimed? ?out\b`,
		`\bskipp(ed|ing)\b`,
	)},
	{types.OutputSuccess, 2, compileAll(
		`\bsuccess(ful|fully)?\b`,
		`\bdone\b`,
		`\bcompleted?\b`,
		`\bready\b`,
		`\bstarted\b`,
		`\bfinished\b`,
		`listening on`,
		`running on`,
	)},
	{types.OutputInfo, 3, compileAll(
		`\binfo\b`,
		`\bstarting\b`,
		`\bloading\b`,
		`\binitializing\b`,
		`\bconnecting\b`,
		`\bdownloading\b`,
	)},
	{types.OutputDebug, 1, compileAll(
		`\bdebug\b`,
		`\btrace\b`,
		`\bverbose\b`,
	)},
	{types.OutputCommand, 0, compileAll(
		`^\s*[$>#] `,
		`^[A-Za-z]:\\.*>`,
	)},
}

// tagKeywords maps a tag name to the substrings that imply it. Tag checks are
// independent of classification; a line may carry zero or many tags.
var tagKeywords = []struct {
	Tag      string
	Keywords []string
}{
	{"loading", []string{"loading", "loaded"}},
	{"initialization", []string{"initializ", "init "}},
	{"connection", []string{"connect", "disconnect", "socket"}},
	{"download", []string{"download"}},
	{"upload", []string{"upload"}},
	{"processing", []string{"processing", "processed"}},
	{"memory", []string{"memory", "ram", "vram", "oom"}},
	{"cpu", []string{"cpu", "core", "thread"}},
	{"network", []string{"network", "http", "port", "url"}},
	{"file", []string{"file", "path", "directory", "folder"}},
	{"database", []string{"database", "sql", "query"}},
}

var (
	boostPatterns = compileAll(`\bfatal\b`, `\bcritical\b`)
	severePattern = regexp.MustCompile(`(?i)\bsevere\b`)
	minorPattern  = regexp.MustCompile(`(?i)\b(minor|trivial)\b`)

	numberPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
	urlPattern    = regexp.MustCompile(`https?://[^\s]+`)
	pathPattern   = regexp.MustCompile(`(?:^|\s)(/[^\s:]+|[A-Za-z]:\\[^\s:]+)`)
	clockPattern  = regexp.MustCompile(`\b\d{1,2}:\d{2}(?::\d{2})?\b`)
)

// Analyze classifies one raw output line. Pure and deterministic: no I/O, no
// shared state. It never panics outward; any internal failure yields an entry
// with type unknown and severity 0 plus an error note in Meta.
func Analyze(line string, stream types.OutputStream) (entry types.OutputEntry) {
	entry = types.OutputEntry{
		Timestamp: float64(time.Now().UnixNano()) / 1e9,
		Line:      line,
		Stream:    stream,
		Type:      types.OutputPlain,
	}
	defer func() {
		if r := recover(); r != nil {
			entry.Type = types.OutputUnknown
			entry.Severity = 0
			entry.Tags = nil
			entry.Meta = map[string]string{"analyze_error": "internal classifier failure"}
		}
	}()
	if line == "" {
		return entry
	}

	for _, g := range patternGroups {
		if matchAny(g.Patterns, line) {
			entry.Type = g.Type
			entry.Severity = g.Severity
			break
		}
	}

	// Keyword adjustments after base classification.
	switch {
	case matchAny(boostPatterns, line):
		entry.Severity = 10
	case severePattern.MatchString(line):
		entry.Severity = 9
	case minorPattern.MatchString(line):
		entry.Severity -= 2
		if entry.Severity < 0 {
			entry.Severity = 0
		}
	}

	lower := strings.ToLower(line)
	for _, tk := range tagKeywords {
		for _, kw := range tk.Keywords {
			if strings.Contains(lower, kw) {
				entry.Tags = append(entry.Tags, tk.Tag)
				break
			}
		}
	}

	entry.Meta = extractMeta(line)
	return entry
}

func matchAny(pats []*regexp.Regexp, line string) bool {
	for _, p := range pats {
		if p.MatchString(line) {
			return true
		}
	}
	return false
}

// extractMeta pulls advisory details out of a line. Best effort only: the
// result feeds tooltips and analytics, never control flow.
func extractMeta(line string) map[string]string {
	var meta map[string]string
	set := func(k, v string) {
		if meta == nil {
			meta = make(map[string]string)
		}
		meta[k] = v
	}
	if nums := numberPattern.FindAllString(line, 4); len(nums) > 0 {
		set("numbers", strings.Join(nums, ","))
	}
	if url := urlPattern.FindString(line); url != "" {
		set("url", url)
	}
	if m := pathPattern.FindStringSubmatch(line); len(m) > 1 {
		set("path", m[1])
	}
	if clockPattern.MatchString(line) {
		set("has_timestamp", "true")
	}
	return meta
}
