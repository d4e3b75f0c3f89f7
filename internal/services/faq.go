package services

import "strings"

// FAQ answers questions offline by keyword lookup. Entries are matched in declaration order and the first
// keyword found anywhere in the input wins, so the order of the table decides between overlapping topics.
type FAQ struct {
	entries  []FAQEntry
	fallback string
}

// FAQEntry pairs a topic keyword with its canned answer.
type FAQEntry struct {
	Keyword  string `yaml:"keyword"`
	Response string `yaml:"response"`
}

const defaultFAQResponse = "I'm here to help! You can ask about our services (Weddings, Portraits, Events), " +
	"pricing, or how to contact us. How can I assist you today?"

var defaultFAQEntries = []FAQEntry{
	{
		Keyword: "wedding",
		Response: "Our Wedding Photography includes full-day coverage, multiple photographers, pre-ceremony prep, " +
			"and high-resolution edited images. We work discreetly to capture every special moment.",
	},
	{
		Keyword: "pricing",
		Response: "Pricing depends on the service and duration. For a detailed quote, please reach out via our " +
			"contact page or let me know which service you're interested in!",
	},
	{
		Keyword: "services",
		Response: "We provide Wedding Photography, Pre-Wedding Sessions, Event Photography, Portrait sessions, " +
			"and Commercial photography. Which one would you like to know more about?",
	},
	{
		Keyword: "contact",
		Response: "You can reach us through our Contact page, or by emailing us at hello@jdphotomoments.com. " +
			"We're also available for a call!",
	},
	{
		Keyword:  "location",
		Response: "We are based in Chennai, India, but we are happy to travel for destination weddings and events!",
	},
}

// NewFAQ creates an FAQ from an ordered table and the answer used when nothing matches. Entries with an empty
// keyword are dropped since they would match every input.
func NewFAQ(entries []FAQEntry, fallback string) FAQ {
	es := make([]FAQEntry, 0, len(entries))
	for _, e := range entries {
		kw := strings.ToLower(strings.TrimSpace(e.Keyword))
		if kw == "" {
			continue
		}
		es = append(es, FAQEntry{Keyword: kw, Response: e.Response})
	}
	return FAQ{entries: es, fallback: fallback}
}

// DefaultFAQ returns the studio's built-in table: wedding, pricing, services, contact, location.
func DefaultFAQ() FAQ {
	return NewFAQ(defaultFAQEntries, defaultFAQResponse)
}

// DefaultFAQEntries returns a copy of the built-in table.
func DefaultFAQEntries() []FAQEntry {
	out := make([]FAQEntry, len(defaultFAQEntries))
	copy(out, defaultFAQEntries)
	return out
}

// DefaultFAQResponse returns the built-in answer for unmatched questions.
func DefaultFAQResponse() string {
	return defaultFAQResponse
}

// Respond returns the canned answer for input.
func (f FAQ) Respond(input string) string {
	lower := strings.ToLower(input)
	for _, e := range f.entries {
		if strings.Contains(lower, e.Keyword) {
			return e.Response
		}
	}
	return f.fallback
}
