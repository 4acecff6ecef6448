// Package captions turns timed-text caption files into a queryable index and
// tracks the active caption against an advancing playback clock.
package captions

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"binge-player/models"
)

// timingLineRe matches "start --> end" with optional trailing cue settings.
// Hours and minutes are optional, "," is accepted as millisecond separator.
var timingLineRe = regexp.MustCompile(`^\s*(\S+?)\s*-->\s*(\S+)(?:\s+.*)?$`)

// tagRe matches inline markup such as <i>, </b>, <c.yellow> or <00:01.000>.
var tagRe = regexp.MustCompile(`<[^>]*>`)

var entityReplacer = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&amp;", "&",
	"&nbsp;", " ",
	"&quot;", `"`,
	"&#39;", "'",
)

// Parse converts raw WebVTT-like text into cues. Malformed blocks are
// dropped; input without any timing line yields an empty slice.
func Parse(raw string) []models.Cue {
	var cues []models.Cue
	if strings.TrimSpace(raw) == "" {
		return cues
	}

	raw = strings.TrimPrefix(raw, "\ufeff")
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")

	var (
		inCue      bool
		start, end float64
		valid      bool
		text       []string
	)

	flush := func() {
		if inCue && valid {
			if cue, ok := newCue(start, end, text); ok {
				cues = append(cues, cue)
			}
		}
		inCue = false
		valid = false
		text = text[:0]
	}

	for _, line := range lines {
		line = strings.TrimRight(line, "\r")

		if m := timingLineRe.FindStringSubmatch(line); m != nil {
			flush()
			inCue = true
			s, errStart := ParseTimestamp(m[1])
			e, errEnd := ParseTimestamp(m[2])
			valid = errStart == nil && errEnd == nil
			start, end = s, e
			continue
		}

		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}

		// lines outside a cue are headers, notes or cue identifiers
		if inCue {
			text = append(text, line)
		}
	}
	flush()

	return cues
}

// newCue cleans the text lines and validates the window.
func newCue(start, end float64, lines []string) (models.Cue, bool) {
	cleaned := make([]string, 0, len(lines))
	for _, l := range lines {
		l = tagRe.ReplaceAllString(l, "")
		l = entityReplacer.Replace(l)
		l = strings.TrimSpace(l)
		if l != "" {
			cleaned = append(cleaned, l)
		}
	}
	text := strings.Join(cleaned, "\n")
	if text == "" || start < 0 || end <= start {
		return models.Cue{}, false
	}
	return models.Cue{StartTime: start, EndTime: end, Text: text}, true
}

// ParseTimestamp parses "[[HH:]MM:]SS[.mmm]" into seconds, rounded to the
// millisecond.
func ParseTimestamp(s string) (float64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return 0, fmt.Errorf("empty timestamp")
	}

	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("timestamp %q: too many fields", s)
	}

	var total float64
	multiplier := 1.0
	for i := len(parts) - 1; i >= 0; i-- {
		p := parts[i]
		if p == "" || strings.ContainsAny(p, "+-eE") {
			return 0, fmt.Errorf("timestamp %q: invalid field %q", s, p)
		}
		// only the seconds field may carry a fraction
		if i != len(parts)-1 && strings.Contains(p, ".") {
			return 0, fmt.Errorf("timestamp %q: fractional field %q", s, p)
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return 0, fmt.Errorf("timestamp %q: %w", s, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("timestamp %q: invalid field %q", s, p)
		}
		total += v * multiplier
		multiplier *= 60
	}

	return math.Round(total*1000) / 1000, nil
}
