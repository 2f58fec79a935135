package ingest

import (
	"encoding/json"
	"regexp"
	"strings"

	"bitunix-signal-bot/internal/executor"
	"bitunix-signal-bot/internal/pairs"
)

// Webhook alert parsing. TradingView payloads arrive either as JSON (even
// under a text/plain content type) or as a bare alert string; both must
// yield a symbol and a normalized signal.

// RawBodyKey is where the untouched body is kept inside the payload for
// later inspection.
const RawBodyKey = "_raw_body"

var (
	// EXCHANGE:SYMBOL -> SYMBOL
	exchangePrefixed = regexp.MustCompile(`\b[A-Z0-9_\-]+:([A-Z0-9.\-]{3,})\b`)
	// XXXUSDT with an optional perpetual suffix
	usdtPair = regexp.MustCompile(`\b([A-Z0-9]{2,}USDT(?:\.P)?)\b`)
	// Spanish alert phrasing: "PARA <SYM> A" / "EN <SYM> A"
	paraEnPhrase = regexp.MustCompile(`\b(?:PARA|EN)\s+([A-Z0-9.\-]{3,})\s+A\b`)
	// Last resort: any dotted token like SOLUSDT.P
	dottedToken = regexp.MustCompile(`\b([A-Z0-9]{3,}\.[A-Z0-9]{1,6})\b`)
)

// ParseBody decodes the request body best-effort: a JSON object is used as
// the payload, anything else becomes {"content": raw}. The raw body is
// always retained under RawBodyKey. Empty bodies return nil.
func ParseBody(raw []byte) map[string]any {
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return nil
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err == nil && obj != nil {
		obj[RawBodyKey] = text
		return obj
	}
	return map[string]any{"content": text, RawBodyKey: text}
}

// ExtractSymbolFromText pulls a ticker out of free-form alert text. The
// input must already be uppercased.
func ExtractSymbolFromText(textUpper string) string {
	t := strings.TrimSpace(textUpper)
	if t == "" {
		return ""
	}
	for _, re := range []*regexp.Regexp{exchangePrefixed, usdtPair, paraEnPhrase, dottedToken} {
		if m := re.FindStringSubmatch(t); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

// Resolution is the outcome of parsing one webhook payload.
type Resolution struct {
	Symbol string
	Signal executor.Signal
}

// Resolve determines symbol and signal from the payload. Explicit
// symbol/ticker and signal/action/side keys win; otherwise both are
// inferred from the alert text. The symbol is then mapped onto the
// configured pair set, reconciling the TradingView ".P" perpetual suffix
// in both directions.
func Resolve(payload map[string]any, view *pairs.View) Resolution {
	content := strings.ToUpper(firstString(payload, "content", "message", "alert_message"))

	symbol := strings.ToUpper(strings.TrimSpace(firstString(payload, "symbol", "ticker")))
	if symbol == "" {
		symbol = ExtractSymbolFromText(content)
	}
	symbol = mapSymbolToConfigured(symbol, view)

	return Resolution{
		Symbol: symbol,
		Signal: executor.ResolveSignal(payload),
	}
}

func firstString(payload map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := payload[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

// mapSymbolToConfigured reconciles the incoming ticker with the configured
// set: SOLUSDT.P falls back to SOLUSDT and vice versa. Unknown symbols
// pass through unchanged so the caller can report them.
func mapSymbolToConfigured(symbol string, view *pairs.View) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" || view == nil {
		return s
	}
	if _, ok := view.Get(s); ok {
		return s
	}
	if base, found := strings.CutSuffix(s, ".P"); found {
		if _, ok := view.Get(base); ok {
			return base
		}
	} else if _, ok := view.Get(s + ".P"); ok {
		return s + ".P"
	}
	return s
}
