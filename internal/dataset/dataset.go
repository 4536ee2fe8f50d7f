// Package dataset generates the sample FAQ/documentation corpus used by the
// toolkit's seed and eval commands. Generation is seeded so every run of the
// exercises works against the same records.
package dataset

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/searchlab-dev/searchlab/internal/errors"
)

// Record is one corpus entry.
type Record struct {
	ID        uint64 `json:"id"`
	Text      string `json:"text"`
	Category  string `json:"category"`
	Lang      string `json:"lang"`
	Timestamp int64  `json:"timestamp"`
}

// Payload returns the record's payload fields for indexing.
func (r Record) Payload() map[string]string {
	return map[string]string{
		"text":     r.Text,
		"category": r.Category,
		"lang":     r.Lang,
	}
}

// DefaultSize and DefaultSeed match the corpus the exercises were written
// against.
const (
	DefaultSize = 150
	DefaultSeed = 42
)

// Categories and Languages enumerate the payload field values.
var (
	Categories = []string{"faq", "howto", "policy", "product", "release"}
	Languages  = []string{"en", "es", "fr", "de"}
)

var baseTexts = map[string][]string{
	"faq": {
		"How do I reset my password?",
		"What are your business hours?",
		"How can I contact customer support?",
		"What payment methods do you accept?",
		"How do I cancel my subscription?",
		"Is there a mobile app available?",
		"How do I update my account information?",
		"What is your refund policy?",
	},
	"howto": {
		"How to install the software on Windows",
		"Setting up your development environment",
		"Creating your first project",
		"Configuring database connections",
		"Deploying to production servers",
		"Running automated tests",
		"Setting up monitoring and alerts",
		"Backing up your data regularly",
	},
	"policy": {
		"Privacy policy and data protection",
		"Terms of service agreement",
		"Cookie usage policy",
		"Data retention guidelines",
		"Security compliance standards",
		"User content moderation rules",
		"Acceptable use policy",
		"Third-party integrations policy",
	},
	"product": {
		"New feature: Advanced search capabilities",
		"Product overview and key benefits",
		"System requirements and compatibility",
		"Pricing plans and feature comparison",
		"Integration with popular tools",
		"Performance benchmarks and metrics",
		"API documentation and examples",
		"User interface design principles",
	},
	"release": {
		"Version 2.1 release notes",
		"Bug fixes and improvements",
		"Breaking changes in latest update",
		"New API endpoints available",
		"Performance optimizations implemented",
		"Security patches and updates",
		"Deprecated features announcement",
		"Migration guide for existing users",
	},
}

// Generate produces size records from the given seed. IDs are 1-based and
// sequential; timestamps fall within the year before now.
func Generate(size int, seed int64) ([]Record, error) {
	if size < 0 {
		return nil, errors.InvalidArgument("size must be >= 0, got %d", size)
	}

	rng := rand.New(rand.NewSource(seed))
	now := time.Now().Unix()
	const yearSeconds = 86400 * 365

	records := make([]Record, 0, size)
	for i := 0; i < size; i++ {
		category := Categories[rng.Intn(len(Categories))]
		lang := Languages[rng.Intn(len(Languages))]
		base := baseTexts[category][rng.Intn(len(baseTexts[category]))]

		variations := []string{
			base,
			base + " - Updated version",
			"Learn about " + strings.ToLower(base),
			"Guide: " + base,
			fmt.Sprintf("FAQ: %s?", base),
		}
		text := variations[rng.Intn(len(variations))]

		records = append(records, Record{
			ID:        uint64(i + 1),
			Text:      text,
			Category:  category,
			Lang:      lang,
			Timestamp: now - int64(rng.Intn(yearSeconds)),
		})
	}
	return records, nil
}
