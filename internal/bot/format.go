package bot

import (
	"fmt"
	"strings"

	"code_tracker/internal/model"
	"code_tracker/internal/pipeline"
)

// FormatDiscovery formats a newly stored code as a Telegram notification.
func FormatDiscovery(game model.GameConfig, rec model.CodeRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] New code\n\n", game.Name)
	b.WriteString(rec.Key)
	if rec.Reward != "" {
		fmt.Fprintf(&b, "\nReward: %s", rec.Reward)
	}
	if v := validity(rec); v != "" {
		fmt.Fprintf(&b, "\nValid: %s", v)
	}
	if rec.URL != "" {
		b.WriteString("\n\n")
		b.WriteString(rec.URL)
	}
	return b.String()
}

// FormatGameList formats the tracked games for display.
func FormatGameList(games []model.GameConfig) string {
	if len(games) == 0 {
		return "No games are tracked."
	}
	var b strings.Builder
	b.WriteString("Tracked games:\n")
	for _, g := range games {
		fmt.Fprintf(&b, "\n%s — /codes %s", g.Name, g.Slug)
	}
	return b.String()
}

// FormatCodeList formats up to limit codes of a game, newest first.
func FormatCodeList(game model.GameConfig, codes []model.CodeRecord, limit int) string {
	if len(codes) == 0 {
		return fmt.Sprintf("No codes for %s yet.", game.Name)
	}
	shown := codes
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s codes (%d of %d):\n", game.Name, len(shown), len(codes))
	for _, c := range shown {
		fmt.Fprintf(&b, "\n%s  %s\n", c.Key, c.DiscoveredAt.Format("2006-01-02"))
		if c.Reward != "" {
			fmt.Fprintf(&b, "   %s\n", c.Reward)
		}
		if v := validity(c); v != "" {
			fmt.Fprintf(&b, "   valid %s\n", v)
		}
	}
	return b.String()
}

// FormatScanResults summarises an on-demand discovery pass.
func FormatScanResults(results []pipeline.Result) string {
	if len(results) == 0 {
		return "Scan cancelled."
	}
	var b strings.Builder
	b.WriteString("Scan finished:\n")
	for _, r := range results {
		switch r.State {
		case pipeline.Completed:
			fmt.Fprintf(&b, "\n%s: %d new", r.Game, r.Found)
		case pipeline.Gated:
			fmt.Fprintf(&b, "\n%s: checked less than an hour ago", r.Game)
		default:
			fmt.Fprintf(&b, "\n%s: %s", r.Game, r.State)
		}
	}
	return b.String()
}

func validity(c model.CodeRecord) string {
	switch {
	case c.Start != "" && c.End != "":
		return c.Start + " – " + c.End
	case c.End != "":
		return "until " + c.End
	case c.Start != "":
		return "from " + c.Start
	}
	return ""
}
