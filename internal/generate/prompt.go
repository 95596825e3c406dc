package generate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cheapeats/internal/model"
)

// Chains are the fast food chains the generator writes deals for. The first
// promptChains are named in the general prompt.
var Chains = []string{
	"McDonald's", "Burger King", "Taco Bell", "KFC", "Subway", "Pizza Hut",
	"Wendy's", "Domino's", "Chipotle", "Starbucks", "Dunkin'", "Arby's",
	"Sonic", "Dairy Queen", "Papa John's", "Little Caesars", "Chick-fil-A",
	"Five Guys", "In-N-Out", "White Castle", "Jack in the Box", "Carl's Jr",
	"Hardee's", "Qdoba", "Panera", "Jimmy John's", "Popeyes", "Tim Hortons",
	"Whataburger", "Del Taco", "Panda Express", "Culver's", "Raising Cane's",
	"El Pollo Loco", "Moe's", "Blaze Pizza", "Papa Murphy's", "Checkers",
	"Rally's", "Zaxby's", "Bojangles", "Cook Out", "Krystal", "Captain D's",
}

const promptChains = 15

// systemPrompt is shared by both prompts and cached across calls.
const systemPrompt = `You are a fast food deals expert. You write realistic, current promotions that customers would actually find at national chains.

Respond with ONLY a valid JSON array of deal objects, no other text. Each object has:
restaurantName, title, description, category, originalPrice, dealPrice, dealType, expirationDate (YYYY-MM-DD), sourceUrl.

Categories to use: Fast Food, Pizza, Mexican, Coffee, Sandwiches, Chicken, Burgers, Asian
Deal types: percentage_off, dollar_off, bogo, free_item, combo_deal, limited_time, app_exclusive
Keep descriptions under 150 characters.`

const exampleDeal = `[
  {
    "restaurantName": "McDonald's",
    "title": "Big Mac Meal $6.99 via App",
    "description": "Get a Big Mac, medium fries, and medium drink for just $6.99 when you order through the McDonald's mobile app. Limited time offer.",
    "category": "Fast Food",
    "originalPrice": "$10.49",
    "dealPrice": "$6.99",
    "dealType": "dollar_off",
    "expirationDate": "2026-02-28",
    "sourceUrl": "https://www.mcdonalds.com/us/en-us/deals.html"
  }
]`

func generalPrompt(loc model.Location, count int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate exactly %d realistic, current fast food deals for coordinates %g, %g.\n\n", count, loc.Latitude, loc.Longitude)
	fmt.Fprintf(&b, "Create deals that customers would actually find at these popular chains: %s, and others.\n\n", strings.Join(Chains[:promptChains], ", "))
	b.WriteString(`CRITICAL REQUIREMENTS:
- Each deal must be COMPLETELY UNIQUE - no duplicate or similar deals
- Maximum 2 deals per restaurant chain
- Each deal must target different meal types (breakfast, lunch, dinner, drinks, snacks)
- Vary deal types significantly across restaurants

Focus on these types of fast food deals:
- App-exclusive promotions (very common)
- BOGO offers (Buy One Get One)
- Percentage discounts (10-50% off)
- Fixed price meals ($5 meals, $1 drinks, etc.)
- Limited time offers
- Student/military discounts
- Loyalty program rewards
- Combo meal deals
- Happy hour specials
- Free items with purchase

Include a realistic "sourceUrl" for each deal that looks like it could be from the restaurant's official website, app, or deals page.

`)
	fmt.Fprintf(&b, "Return ONLY a valid JSON array with exactly %d deals:\n%s", count, exampleDeal)
	return b.String()
}

func targetedPrompt(chains []string, loc model.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate 5-8 current, realistic deals for each of these fast food chains: %s\n\n", strings.Join(chains, ", "))
	fmt.Fprintf(&b, "Location: %g, %g\n\n", loc.Latitude, loc.Longitude)
	b.WriteString(`Focus on deals these chains commonly offer:
- App-exclusive promotions
- Limited time offers
- Value meals and combos
- BOGO deals
- Happy hour specials
- Loyalty rewards

Make each deal authentic to that brand. Return a JSON array with realistic pricing.`)
	return b.String()
}

// cleanJSON strips markdown code fences from an LLM reply. A reply that
// already starts with a JSON value is returned as is, so an object stays an
// object. Otherwise the bracketed span is cut out of the surrounding prose,
// unless an object opens before it.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "[") || strings.HasPrefix(text, "{") {
		return text
	}

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return text
	}
	if obj := strings.Index(text, "{"); obj >= 0 && obj < start {
		return text
	}
	return strings.TrimSpace(text[start : end+1])
}

// parseCandidates decodes a reply into candidates. The reply must be a JSON
// array; elements that are not objects are skipped and counted.
func parseCandidates(text string) ([]model.Candidate, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(cleanJSON(text))))
	dec.UseNumber()

	var items []json.RawMessage
	if err := dec.Decode(&items); err != nil {
		return nil, eris.Wrap(err, "generate: decode deals array")
	}

	out := make([]model.Candidate, 0, len(items))
	skipped := 0
	for _, raw := range items {
		d := json.NewDecoder(bytes.NewReader(raw))
		d.UseNumber()
		var c map[string]any
		if err := d.Decode(&c); err != nil || c == nil {
			skipped++
			continue
		}
		out = append(out, model.Candidate(c))
	}
	if skipped > 0 {
		zap.L().Warn("generate: skipped non-object deals in reply",
			zap.Int("skipped", skipped),
			zap.Int("kept", len(out)),
		)
	}
	return out, nil
}
