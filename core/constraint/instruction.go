package constraint

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/kilianp07/loadshift/core/interval"
	"github.com/kilianp07/loadshift/core/model"
)

// Override is the set of fields a user instruction changes for one
// appliance. Nil fields keep their current value.
type Override struct {
	Forbidden    []interval.Interval
	LatestFinish *int
	ShiftRule    *model.ShiftRule
	MinDuration  *int
}

var (
	reRange    = regexp.MustCompile(`(?:between|from)\s+(\d{1,2}:\d{2})\s+(?:and|to|until)\s+(\d{1,2}:\d{2})`)
	reNegation = regexp.MustCompile(`\b(?:not|never|avoid|forbid\w*|no)\b|n't`)
	reFinish   = regexp.MustCompile(`finish(?:ed)?\s+(?:by|before)\s+(\d{1,2}:\d{2})(\s+(?:of\s+)?(?:the\s+)?next\s+day)?`)
	reShorter  = regexp.MustCompile(`shorter\s+than\s+(\d+)\s*min`)
	reFree     = regexp.MustCompile(`\b(?:earlier|any\s?time|advance)\b`)
	reSplit    = regexp.MustCompile(`[.;\n]+`)
)

// ParseInstruction is the deterministic stand-in for natural-language
// constraint parsing. Each sentence applies to the appliances it names, or to
// every known appliance when it names none. Sentences that match no rule are
// ignored.
func ParseInstruction(text string, appliances []string) map[string]Override {
	out := make(map[string]Override)
	names := append([]string(nil), appliances...)
	// Longest names first so "Washing Machine (2)" wins over "Washing Machine".
	sort.Slice(names, func(i, j int) bool { return len(names[i]) > len(names[j]) })

	for _, sentence := range reSplit.Split(strings.ToLower(text), -1) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		ov, ok := parseSentence(sentence)
		if !ok {
			continue
		}
		targets := mentioned(sentence, names)
		if len(targets) == 0 {
			targets = appliances
		}
		for _, name := range targets {
			out[name] = mergeOverride(out[name], ov)
		}
	}
	return out
}

func parseSentence(s string) (Override, bool) {
	var ov Override
	matched := false
	if reNegation.MatchString(s) {
		for _, m := range reRange.FindAllStringSubmatch(s, -1) {
			spans, err := ParseForbidden([][2]string{{m[1], m[2]}})
			if err != nil {
				continue
			}
			ov.Forbidden = append(ov.Forbidden, spans...)
			matched = true
		}
	}
	if m := reFinish.FindStringSubmatch(s); m != nil {
		if lf, err := model.ParseClock(m[1]); err == nil {
			if m[2] != "" {
				lf += interval.MinutesPerDay
			}
			ov.LatestFinish = &lf
			matched = true
		}
	}
	if m := reShorter.FindStringSubmatch(s); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			ov.MinDuration = &n
			matched = true
		}
	}
	if reFree.MatchString(s) {
		r := model.Free
		ov.ShiftRule = &r
		matched = true
	}
	return ov, matched
}

func mentioned(sentence string, names []string) []string {
	var out []string
	rest := sentence
	for _, n := range names {
		ln := strings.ToLower(n)
		if strings.Contains(rest, ln) {
			out = append(out, n)
			rest = strings.ReplaceAll(rest, ln, " ")
		}
	}
	return out
}

func mergeOverride(a, b Override) Override {
	if b.Forbidden != nil {
		a.Forbidden = append(a.Forbidden, b.Forbidden...)
	}
	if b.LatestFinish != nil {
		a.LatestFinish = b.LatestFinish
	}
	if b.ShiftRule != nil {
		a.ShiftRule = b.ShiftRule
	}
	if b.MinDuration != nil {
		a.MinDuration = b.MinDuration
	}
	return a
}

// Apply returns a copy of set with the overrides applied. A forbidden
// override replaces the appliance's forbidden list rather than extending it.
// Appliances missing from set start from DefaultConstraint.
func Apply(set model.ConstraintSet, overrides map[string]Override) (model.ConstraintSet, error) {
	out := make(model.ConstraintSet, len(set)+len(overrides))
	for k, v := range set {
		out[k] = v
	}
	for name, ov := range overrides {
		c, ok := out[name]
		if !ok {
			c = model.DefaultConstraint()
		}
		if ov.Forbidden != nil {
			c.Forbidden = interval.Merge(ov.Forbidden)
		}
		if ov.LatestFinish != nil {
			c.LatestFinish = *ov.LatestFinish
		}
		if ov.ShiftRule != nil {
			c.ShiftRule = *ov.ShiftRule
		}
		if ov.MinDuration != nil {
			c.MinDuration = *ov.MinDuration
		}
		if err := c.Validate(name); err != nil {
			return nil, err
		}
		out[name] = c
	}
	return out, nil
}
