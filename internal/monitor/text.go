package monitor

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")) // green
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))  // red
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")) // yellow
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))  // dim gray
)

// PlainText renders a one-line-per-host summary with indented error detail.
func PlainText(r Report) string {
	var b strings.Builder

	results := make([]int, 0, len(r.Results))
	for i := range r.Results {
		results = append(results, i)
	}
	sort.Slice(results, func(a, b int) bool {
		ra, rb := &r.Results[results[a]], &r.Results[results[b]]
		if ra.IsValid != rb.IsValid {
			return !ra.IsValid // failures first
		}
		return ra.Hostname < rb.Hostname
	})

	for _, idx := range results {
		res := &r.Results[idx]
		status := okStyle.Render("VALID")
		if !res.IsValid {
			status = failStyle.Render("INVALID")
		}
		fmt.Fprintf(&b, "%-9s %-32s mode=%-8s score=%3d matches=%d\n",
			status, res.Hostname, res.Mode, res.TrustScore, len(res.Matches))
		for i := range res.Errors {
			fmt.Fprintf(&b, "  %s\n", failStyle.Render(res.Errors[i].Error()))
		}
		for _, w := range res.Warnings {
			fmt.Fprintf(&b, "  %s\n", warnStyle.Render("warning: "+w))
		}
		for _, w := range r.Posture[res.Hostname] {
			fmt.Fprintf(&b, "  %s\n", warnStyle.Render("posture: "+w))
		}
	}

	if len(r.Errors) > 0 {
		hosts := make([]string, 0, len(r.Errors))
		for h := range r.Errors {
			hosts = append(hosts, h)
		}
		sort.Strings(hosts)
		b.WriteString(dimStyle.Render("probe errors:") + "\n")
		for _, h := range hosts {
			fmt.Fprintf(&b, "  %s: %s\n", h, r.Errors[h])
		}
	}

	if len(r.Results) == 0 && len(r.Errors) == 0 {
		b.WriteString(dimStyle.Render("nothing validated") + "\n")
	}

	return b.String()
}
