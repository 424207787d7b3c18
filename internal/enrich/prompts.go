// Package enrich contains the producers that turn a company domain into
// prompt/answer pairs: a chat-completions client used for direct fan-out and
// a webhook client that hands the job to an external automation engine.
package enrich

import "strings"

// DomainPlaceholder is replaced with the submitted domain in prompt templates.
const DomainPlaceholder = "{domain}"

// DefaultPrompts is the question set asked about every submitted domain.
var DefaultPrompts = []string{
	"What is the official name of the company whose website is {domain}? Reply with the name only.",
	"Describe in one short paragraph what the company at {domain} does.",
	"Which industry does the company at {domain} operate in? Reply with the industry only.",
	"Where is the company at {domain} headquartered? Reply with city and country only.",
	"What is the approximate employee count range of the company at {domain}? Reply with a range such as 11-50.",
	"In which year was the company at {domain} founded? Reply with the year only.",
	"List the main products or services offered by the company at {domain}, comma separated.",
	"Who are the typical customers of the company at {domain}? Reply in one sentence.",
}

// RenderPrompts substitutes domain into every template, preserving order.
// Empty templates are skipped.
func RenderPrompts(templates []string, domain string) []string {
	out := make([]string, 0, len(templates))
	for _, t := range templates {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		out = append(out, strings.ReplaceAll(t, DomainPlaceholder, domain))
	}
	return out
}
