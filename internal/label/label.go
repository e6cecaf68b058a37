// Package label builds evidence-number label strings and rasterises them.
package label

import (
	"strconv"
	"strings"

	"evidence-stamp/internal/domain/entity"
)

var (
	toFullwidth = strings.NewReplacer(
		"0", "０", "1", "１", "2", "２", "3", "３", "4", "４",
		"5", "５", "6", "６", "7", "７", "8", "８", "9", "９",
	)
	toHalfwidth = strings.NewReplacer(
		"０", "0", "１", "1", "２", "2", "３", "3", "４", "4",
		"５", "5", "６", "6", "７", "7", "８", "8", "９", "9",
	)
)

// ToFullwidth maps ASCII digits to their full-width forms. Other runes are untouched.
func ToFullwidth(s string) string {
	return toFullwidth.Replace(s)
}

// ToHalfwidth is the inverse of ToFullwidth.
func ToHalfwidth(s string) string {
	return toHalfwidth.Replace(s)
}

// Build returns the label for mode. Evidence labels read "{prefix}第N号証",
// attachment labels "添付資料N"; a non-empty branch appends "のB".
// main is assumed to be validated by the caller.
func Build(mode, prefix string, main int, branch string) string {
	var b strings.Builder
	num := ToFullwidth(strconv.Itoa(main))

	if mode == entity.ModeAttachment {
		b.WriteString("添付資料")
		b.WriteString(num)
	} else {
		b.WriteString(prefix)
		b.WriteString("第")
		b.WriteString(num)
		b.WriteString("号証")
	}

	if branch = strings.TrimSpace(branch); branch != "" {
		b.WriteString("の")
		b.WriteString(ToFullwidth(branch))
	}
	return b.String()
}

// ForJob builds the label of job under cfg.
func ForJob(cfg entity.StampConfig, job entity.StampJob) string {
	return Build(cfg.EffectiveMode(), cfg.Prefix, job.MainNumber, job.BranchLabel)
}

// ParseNumber parses a half- or full-width digit string. It returns ok=false
// for empty, signed or non-numeric input.
func ParseNumber(s string) (int, bool) {
	s = strings.TrimSpace(ToHalfwidth(s))
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
