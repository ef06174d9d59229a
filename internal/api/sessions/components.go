package sessions

import (
	"context"
	"fmt"
	"html"
	"io"
	"slices"
	"strings"

	"github.com/a-h/templ"
	"github.com/samber/lo"

	"github.com/codr1/Shuttleicious/internal/pairing"
	sessionsvc "github.com/codr1/Shuttleicious/internal/sessions"
)

// courtSheetComponent renders a session as one card per court followed by
// the per-player game counts.
func courtSheetComponent(session sessionsvc.Session) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, buildCourtSheetHTML(session))
		return err
	})
}

func buildCourtSheetHTML(session sessionsvc.Session) string {
	var builder strings.Builder
	fmt.Fprintf(&builder, `<div id="session-%s" class="space-y-4">`, html.EscapeString(session.ID))
	fmt.Fprintf(&builder,
		`<div class="flex items-center justify-between"><h2 class="text-lg font-semibold">%s &middot; %s</h2><span class="text-sm text-gray-500">%s</span></div>`,
		html.EscapeString(session.Date),
		html.EscapeString(strings.ReplaceAll(string(session.Mode), "_", " ")),
		html.EscapeString(string(session.Status)),
	)

	if len(session.Matches) == 0 {
		builder.WriteString(`<div class="rounded border border-dashed p-6 text-center text-sm text-gray-500">No matches could be formed.</div>`)
	} else {
		builder.WriteString(`<div class="grid gap-3">`)
		for _, match := range session.Matches {
			fmt.Fprintf(&builder,
				`<div class="rounded border p-3"><div class="text-xs uppercase text-gray-500">Court %d</div><div class="flex justify-between"><span>%s</span><span class="text-gray-400">vs</span><span>%s</span></div></div>`,
				match.Court,
				teamLabel(match.Team1),
				teamLabel(match.Team2),
			)
		}
		builder.WriteString(`</div>`)
	}

	builder.WriteString(`<table class="w-full text-sm"><thead><tr><th class="text-left">Player</th><th class="text-right">Games</th></tr></thead><tbody>`)
	names := make(map[string]string, len(session.Tally))
	for _, match := range session.Matches {
		for _, p := range match.Players() {
			names[p.ID] = playerLabel(p)
		}
	}
	ids := lo.Keys(session.Tally)
	slices.Sort(ids)
	for _, id := range ids {
		label, ok := names[id]
		if !ok {
			label = id
		}
		fmt.Fprintf(&builder, `<tr><td>%s</td><td class="text-right">%d</td></tr>`, html.EscapeString(label), session.Tally[id])
	}
	builder.WriteString(`</tbody></table></div>`)
	return builder.String()
}

func teamLabel(team pairing.Team) string {
	return html.EscapeString(playerLabel(team.Player1)) + " &amp; " + html.EscapeString(playerLabel(team.Player2))
}

func playerLabel(p pairing.Player) string {
	name := p.Name
	if name == "" {
		name = p.ID
	}
	return fmt.Sprintf("%s (%s)", name, strings.ToUpper(p.Tier.String()))
}
