// Package faq answers visitor questions about the monitor: a remote
// completion service when configured, keyword-matched canned answers
// otherwise.
package faq

import (
	"strings"

	appconfig "goldflow/config"
)

type entry struct {
	key      string
	keywords []string
	answer   string
}

// Responder resolves a free-form question to an answer. Matching is
// case-insensitive: first a containment check against each entry's key in
// either direction, then single keywords, then a generic fallback pointing
// at the contact link.
type Responder struct {
	entries     []entry
	contactLink string
	remote      *remoteClient
}

func NewResponder(cfg *appconfig.ChatbotConfig) *Responder {
	r := &Responder{
		contactLink: cfg.ContactLink,
		entries:     defaultEntries(cfg.ContactLink),
	}
	if cfg.Enabled && cfg.CompletionURL != "" {
		r.remote = newRemoteClient(cfg)
	}
	return r
}

func defaultEntries(contactLink string) []entry {
	return []entry{
		{
			key:      "what is arbitrage trading",
			keywords: []string{"arbitrage", "spread trading"},
			answer: "Arbitrage trading profits from price differences for the same asset across markets: " +
				"when gold trades lower on exchange A than on exchange B, buying on A and selling on B " +
				"at the same time captures the spread. Because both legs execute together, the position " +
				"is not exposed to the market's direction.",
		},
		{
			key:      "is arbitrage trading risky",
			keywords: []string{"risk", "risky", "safe"},
			answer: "Arbitrage carries less directional risk than outright positions, but not none: " +
				"the spread can vanish before both orders fill, fills can slip from quoted prices, " +
				"capital has to sit on several exchanges at once, and network or exchange outages can " +
				"strand one leg. Live monitoring narrows these windows considerably.",
		},
		{
			key:      "how much capital do i need",
			keywords: []string{"capital", "money", "funds", "how much"},
			answer: "The practical floor depends on exchange minimums, the typical spread size and the " +
				"fees both legs pay. Small spreads need larger size to clear costs, so most participants " +
				"start with a five-figure USD balance split across the exchanges they trade.",
		},
		{
			key:      "how does this monitor work",
			keywords: []string{"monitor", "tool", "system", "work"},
			answer: "The monitor keeps live streaming connections to Bybit, Binance and OKX for gold " +
				"perpetual quotes, falls back to REST polling when a stream drops, computes cross-exchange " +
				"price spreads and funding-rate carry continuously, and flags every opportunity above the " +
				"configured thresholds.",
		},
		{
			key:      "why gold futures",
			keywords: []string{"gold", "advantage", "why"},
			answer: "Gold perpetuals are deep and liquid on every major venue, trade around the clock " +
				"across time zones, and their funding rates diverge often enough to create recurring " +
				"carry opportunities, all on an asset that itself hedges market stress.",
		},
		{
			key:      "how do i get access",
			keywords: []string{"join", "access", "contact", "sign up"},
			answer: "Glad you're interested! Reach out through " + contactLink + " and we'll walk you " +
				"through the product, pricing and onboarding.",
		},
	}
}

// LocalAnswer resolves a question against the canned entries only.
func (r *Responder) LocalAnswer(question string) string {
	q := strings.ToLower(strings.TrimSpace(question))
	if q == "" {
		return r.fallback()
	}

	for _, e := range r.entries {
		if strings.Contains(q, e.key) || strings.Contains(e.key, q) {
			return e.answer
		}
	}
	for _, e := range r.entries {
		for _, kw := range e.keywords {
			if strings.Contains(q, kw) {
				return e.answer
			}
		}
	}
	return r.fallback()
}

func (r *Responder) fallback() string {
	return "Good question! I don't have a canned answer for that yet. Try rephrasing, pick one of " +
		"the quick questions above, or reach out through " + r.contactLink + " for a one-on-one answer."
}
