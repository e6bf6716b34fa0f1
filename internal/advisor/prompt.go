package advisor

import (
	"fmt"
	"sort"
	"strings"
)

const systemPrompt = `You are a disciplined, data-driven investment advisor specializing in Bitcoin miner ETFs and stocks.
You analyze technical signals and provide clear, reasoned daily buy/sell/hold recommendations.
Be concise, specific, and honest about uncertainty. Never give financial advice disclaimers — the user understands this is a personal decision-support tool.`

// BuildTickerPrompt assembles the per-ticker analysis request. signalsJSON is
// the indicator snapshot exactly as it will be stored with the analysis.
func BuildTickerPrompt(ticker, signalsJSON, btcTrend, macroSummary string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Analyze %s for today's decision.\n\n", ticker)
	sb.WriteString("Technical signals:\n")
	sb.WriteString(signalsJSON)
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "BTC 7-day trend: %s\n", btcTrend)
	if macroSummary != "" {
		sb.WriteString(macroSummary)
		sb.WriteString("\n")
	}
	sb.WriteString("\nConsider how the BTC trend and macro backdrop affect miner profitability and sector sentiment.\n\n")
	sb.WriteString(`Respond ONLY with valid JSON (no markdown):
{"recommendation": "BUY|SELL|HOLD", "confidence": "LOW|MEDIUM|HIGH", "reasoning": "2-3 sentences", "key_risk": "one sentence"}`)

	return sb.String()
}

// BuildMacroBiasPrompt asks for the one-sentence macro synthesis line.
func BuildMacroBiasPrompt(macroSummary string, recCounts map[string]int) string {
	keys := make([]string, 0, len(recCounts))
	for k := range recCounts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %d", k, recCounts[k]))
	}

	var sb strings.Builder
	sb.WriteString("Given these macro signals:\n")
	sb.WriteString(macroSummary)
	sb.WriteString("\n\nAnd these recommendations for the user's held positions today: ")
	sb.WriteString(strings.Join(parts, ", "))
	sb.WriteString("\n\nFocus on implications for Bitcoin miners and crypto assets (BTC price sensitivity, risk-on/off, DXY headwinds).\n\n")
	sb.WriteString(`Write exactly ONE sentence (max 30 words) for a "Macro environment" summary line.
Explain the overall macro picture and, if there's tension between macro sentiment and the held-position recommendations, name it directly.
Start with "Macro environment:" and be specific — no vague language.
Respond with only the sentence, no JSON, no markdown.`)
	return sb.String()
}

// MacroSummary renders the cached macro snapshot as prompt context lines.
// Unknown or missing values are simply omitted.
func MacroSummary(macro map[string]any) string {
	if len(macro) == 0 {
		return ""
	}
	var lines []string

	if v, ok := num(macro, "btc_dvol"); ok {
		lvl := "normal"
		if v > 60 {
			lvl = "elevated"
		}
		lines = append(lines, fmt.Sprintf("- BTC 30d IV (DVOL): %g (%s)", v, lvl))
	}
	if v, ok := num(macro, "btc_funding_rate_pct"); ok {
		sentiment := "neutral"
		if v > 0.03 {
			sentiment = "crowded long"
		} else if v < -0.01 {
			sentiment = "crowded short"
		}
		lines = append(lines, fmt.Sprintf("- BTC perp funding rate: %+.4f%% (%s)", v, sentiment))
	}
	if v, ok := num(macro, "fear_greed_value"); ok {
		label, _ := macro["fear_greed_label"].(string)
		lines = append(lines, fmt.Sprintf("- Crypto Fear & Greed: %.0f/100 (%s)", v, label))
	}
	if v, ok := num(macro, "puell_multiple"); ok {
		ctx := "normal range"
		if v < 0.5 {
			ctx = "miner capitulation zone"
		} else if v > 2.0 {
			ctx = "miner euphoria"
		}
		lines = append(lines, fmt.Sprintf("- Puell Multiple: %g (%s)", v, ctx))
	}
	if v, ok := num(macro, "network_hashrate_eh"); ok {
		lines = append(lines, fmt.Sprintf("- Network hashrate: %g EH/s", v))
	}
	if v, ok := num(macro, "vix"); ok {
		lines = append(lines, fmt.Sprintf("- VIX: %g", v))
	}
	if v, ok := num(macro, "us_2y_yield"); ok {
		lines = append(lines, fmt.Sprintf("- US 2Y Treasury yield: %g%%", v))
	}
	if v, ok := num(macro, "dxy"); ok {
		lines = append(lines, fmt.Sprintf("- US Dollar Index: %g", v))
	}
	if v, ok := num(macro, "hy_spread"); ok {
		lines = append(lines, fmt.Sprintf("- HY credit spread: %g%%", v))
	}

	if len(lines) == 0 {
		return ""
	}
	return "Macro & market context:\n" + strings.Join(lines, "\n")
}

func num(m map[string]any, key string) (float64, bool) {
	switch v := m[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}
