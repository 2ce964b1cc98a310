package output

import (
	"fmt"
	"strings"
	"time"
)

// Tree drawing characters using Unicode box-drawing characters.
const (
	TreeBranch     = "├─"
	TreeLastBranch = "└─"
	TreePipe       = "│ "
	TreeSpace      = "  "
)

const dateLayout = "2006-01-02"

// Config holds configuration for tree rendering.
type Config struct {
	ColorEnabled bool             // Enable colored output using ANSI escape codes.
	Now          func() time.Time // Clock used for relative dates.
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		ColorEnabled: true,
		Now:          time.Now,
	}
}

// Renderer renders license status as a tree structure.
type Renderer struct {
	config Config
}

// NewRenderer creates a new tree renderer with the given configuration.
func NewRenderer(config Config) *Renderer {
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Renderer{config: config}
}

// gray applies a medium gray color (ANSI 256 color 245) for secondary information.
func (r *Renderer) gray(s string) string {
	if !r.config.ColorEnabled {
		return s
	}
	return "\033[38;5;245m" + s + "\033[0m"
}

type entry struct {
	label    string
	value    string
	children []entry
}

// RenderStatus renders the complete license status as a tree structure.
func (r *Renderer) RenderStatus(report Report) string {
	var buf strings.Builder

	buf.WriteString(r.RenderVerdict(report))
	buf.WriteString("\n│\n")

	entries := []entry{{label: "product", value: report.Product}}
	if lic := report.License; lic != nil {
		entries = append(entries, entry{label: "license", children: r.licenseEntries(lic)})
	}
	file := report.File
	if file == "" {
		file = "disabled"
	}
	entries = append(entries,
		entry{label: "file", value: file},
		entry{label: "last sync", value: r.formatSince(report.Sync.LastRemoteSync)},
	)

	r.renderEntries(&buf, entries, "")
	return buf.String()
}

// RenderVerdict renders the single verdict line.
func (r *Renderer) RenderVerdict(report Report) string {
	head := fmt.Sprintf("%s %s", ResultSymbol(report.result), report.Result)
	if r.config.ColorEnabled {
		head = ResultColorize(head, report.result)
	}
	desc := report.result.Description()
	if report.Detail != "" {
		desc += ": " + report.Detail
	}
	return head + " " + r.gray("("+desc+")")
}

func (r *Renderer) licenseEntries(lic *LicenseReport) []entry {
	licensee := lic.Licensee
	if lic.Email != "" {
		licensee = strings.TrimSpace(licensee + " <" + lic.Email + ">")
	}
	kind := "full"
	if lic.Trial {
		kind = "trial"
	}
	out := []entry{
		{label: "licensee", value: licensee},
		{label: "type", value: kind},
	}
	if lic.Serial != "" {
		out = append(out, entry{label: "serial", value: lic.Serial})
	}
	if lic.Variant != "" {
		out = append(out, entry{label: "variant", value: lic.Variant})
	}
	if lic.IssuedAt != nil {
		out = append(out, entry{label: "issued", value: lic.IssuedAt.Format(dateLayout)})
	}
	out = append(out,
		entry{label: "expires", value: r.formatDeadline(lic.Expires)},
		entry{label: "support ends", value: r.formatDeadline(lic.SupportEnds)},
	)
	return out
}

func (r *Renderer) renderEntries(buf *strings.Builder, entries []entry, prefix string) {
	for i, e := range entries {
		isLast := i == len(entries)-1
		buf.WriteString(prefix)
		buf.WriteString(branchChar(isLast))
		buf.WriteString(e.label)
		if e.value != "" {
			buf.WriteString(": ")
			buf.WriteString(e.value)
		}
		buf.WriteString("\n")
		if len(e.children) > 0 {
			r.renderEntries(buf, e.children, childPrefix(prefix, isLast))
		}
	}
}

func (r *Renderer) formatDeadline(t *time.Time) string {
	if t == nil {
		return "never"
	}
	s := t.Format(dateLayout)
	now := r.config.Now()
	days := int(t.Sub(now).Hours() / 24)
	switch {
	case t.Before(now):
		return s + " " + r.gray("(passed)")
	case days == 0:
		return s + " " + r.gray("(today)")
	default:
		return s + " " + r.gray(fmt.Sprintf("(in %d days)", days))
	}
}

func (r *Renderer) formatSince(t *time.Time) string {
	if t == nil {
		return "never"
	}
	ago := r.config.Now().Sub(*t).Truncate(time.Second)
	if ago < 0 {
		ago = 0
	}
	return t.Format(time.RFC3339) + " " + r.gray("("+ago.String()+" ago)")
}

// branchChar returns the appropriate tree branch character based on position.
func branchChar(isLast bool) string {
	if isLast {
		return TreeLastBranch
	}
	return TreeBranch
}

// childPrefix returns the prefix for child elements based on parent position.
func childPrefix(prefix string, isLast bool) string {
	if isLast {
		return prefix + TreeSpace
	}
	return prefix + TreePipe
}
