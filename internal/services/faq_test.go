package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jdphotomoments/chatwidget/internal/services"
)

func TestFAQRespondSingleKeyword(t *testing.T) {
	faq := services.DefaultFAQ()
	entries := services.DefaultFAQEntries()

	inputs := map[string]string{
		"wedding":  "Do you shoot a WEDDING abroad?",
		"pricing":  "what is your pricing",
		"services": "Which services do you offer?",
		"contact":  "how can I contact you",
		"location": "what's your location?",
	}

	for _, e := range entries {
		t.Run(e.Keyword, func(t *testing.T) {
			assert.Equal(t, e.Response, faq.Respond(inputs[e.Keyword]))
		})
	}
}

func TestFAQRespondNoKeyword(t *testing.T) {
	faq := services.DefaultFAQ()

	assert.Equal(t, services.DefaultFAQResponse(), faq.Respond("hello there"))
	assert.Equal(t, services.DefaultFAQResponse(), faq.Respond(""))
}

func TestFAQRespondFirstDeclaredWins(t *testing.T) {
	faq := services.DefaultFAQ()
	entries := services.DefaultFAQEntries()
	wedding, pricing := entries[0], entries[1]

	// "pricing" appears first in the text, but "wedding" is declared first.
	assert.Equal(t, wedding.Response, faq.Respond("what's the pricing for a wedding"))
	assert.Equal(t, pricing.Response, faq.Respond("pricing and contact details please"))
}

func TestNewFAQCustomTable(t *testing.T) {
	faq := services.NewFAQ([]services.FAQEntry{
		{Keyword: "", Response: "matches everything"},
		{Keyword: "  Portrait ", Response: "portraits"},
		{Keyword: "event", Response: "events"},
	}, "fallback")

	assert.Equal(t, "portraits", faq.Respond("portrait for an event"))
	assert.Equal(t, "events", faq.Respond("corporate EVENTS"))
	assert.Equal(t, "fallback", faq.Respond("anything else"))
}
