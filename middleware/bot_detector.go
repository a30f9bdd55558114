package middleware

import "strings"

type BotCategory string

const (
	BotCategoryNone         BotCategory = ""
	BotCategorySearchEngine BotCategory = "search_engine"
	BotCategoryMonitoring   BotCategory = "monitoring"
	BotCategoryAPI          BotCategory = "api"
	BotCategoryAutomated    BotCategory = "automated"
	BotCategoryUnknown      BotCategory = "unknown"
)

type botRule struct {
	category BotCategory
	keywords []string
}

// Specific categories come first so that e.g. "Googlebot" is a search engine
// rather than a generic automated client.
var botRules = []botRule{
	{BotCategorySearchEngine, []string{"googlebot", "bingbot", "yandexbot", "baiduspider", "duckduckbot", "slurp", "applebot", "petalbot"}},
	{BotCategoryMonitoring, []string{"uptimerobot", "pingdom", "statuscake", "site24x7", "datadog", "newrelic", "betteruptime", "checkly", "updown.io"}},
	{BotCategoryAPI, []string{"curl/", "wget/", "postmanruntime", "insomnia", "httpie", "go-http-client", "python-requests", "axios/", "okhttp", "node-fetch", "undici"}},
	{BotCategoryAutomated, []string{"bot", "crawler", "spider", "scraper", "scrapy", "headlesschrome", "phantomjs", "selenium", "puppeteer", "playwright"}},
}

// BotDetector classifies user agents and decides which automated clients may pass.
type BotDetector struct {
	allowed map[BotCategory]bool
}

func NewBotDetector(allowedCategories []string) *BotDetector {
	allowed := make(map[BotCategory]bool, len(allowedCategories))
	for _, c := range allowedCategories {
		allowed[BotCategory(strings.ToLower(strings.TrimSpace(c)))] = true
	}
	return &BotDetector{allowed: allowed}
}

// Classify returns the bot category of userAgent, or BotCategoryNone for browsers.
// An empty user agent is treated as an unknown bot.
func Classify(userAgent string) BotCategory {
	ua := strings.ToLower(strings.TrimSpace(userAgent))
	if ua == "" {
		return BotCategoryUnknown
	}
	for _, rule := range botRules {
		for _, kw := range rule.keywords {
			if strings.Contains(ua, kw) {
				return rule.category
			}
		}
	}
	return BotCategoryNone
}

// Denied reports whether userAgent belongs to a bot category that is not allowed.
func (d *BotDetector) Denied(userAgent string) (bool, BotCategory) {
	category := Classify(userAgent)
	if category == BotCategoryNone {
		return false, category
	}
	return !d.allowed[category], category
}
