package classify

import "github.com/sells-group/cheapeats/internal/model"

// Restriction notes attached to deals.
const (
	RestrictionApp           = "Mobile app required"
	RestrictionParticipating = "At participating locations only"
	RestrictionLimitedTime   = "Limited time offer"
	RestrictionOnePer        = "One per customer"
	RestrictionNoStacking    = "Cannot be combined with other offers"
)

// Categories maps restaurant names to a cuisine.
var Categories = NewTable(model.CategoryFastFood,
	Rule[model.Category]{Name: "pizza", When: RestaurantHas("pizza"), Result: model.CategoryPizza},
	Rule[model.Category]{Name: "mexican", When: RestaurantHas("taco", "chipotle", "qdoba", "del taco", "moe"), Result: model.CategoryMexican},
	Rule[model.Category]{Name: "sandwiches", When: RestaurantHas("subway", "jimmy", "panera"), Result: model.CategorySandwiches},
	Rule[model.Category]{Name: "coffee", When: RestaurantHas("starbucks", "dunkin", "tim hortons"), Result: model.CategoryCoffee},
	Rule[model.Category]{Name: "chicken", When: RestaurantHas("kfc", "popeyes", "chick", "raising cane", "zaxby", "bojangles"), Result: model.CategoryChicken},
	Rule[model.Category]{Name: "asian", When: RestaurantHas("panda", "pei wei"), Result: model.CategoryAsian},
	Rule[model.Category]{Name: "burgers", When: RestaurantHas("burger", "five guys", "in-n-out", "whataburger", "culver", "shake shack"), Result: model.CategoryBurgers},
)

// DealTypes infers the promotion shape from the title and price text.
var DealTypes = NewTable(model.DealTypeLimitedTime,
	Rule[model.DealType]{Name: "bogo", When: Any(PriceHas("bogo"), TitleHas("bogo")), Result: model.DealTypeBOGO},
	Rule[model.DealType]{Name: "free", When: PriceHas("free"), Result: model.DealTypeFreeItem},
	Rule[model.DealType]{Name: "percent", When: Any(PriceHas("%"), TitleHas("% off")), Result: model.DealTypePercentageOff},
	Rule[model.DealType]{Name: "dollar", When: All(PriceHas("$"), Any(PriceHas("off"), TitleHas("off"))), Result: model.DealTypeDollarOff},
	Rule[model.DealType]{Name: "app", When: TitleWord("app", "apps", "mobile"), Result: model.DealTypeAppExclusive},
	Rule[model.DealType]{Name: "combo", When: TitleHas("combo", "meal", "box"), Result: model.DealTypeComboDeal},
	Rule[model.DealType]{Name: "membership", When: TitleHas("member", "loyalty"), Result: model.DealTypeMembership},
)

// Restrictions lists the fine print implied by the title and description.
var Restrictions = NewTable("",
	Rule[string]{Name: "app", When: ContentWord("app", "apps", "mobile"), Result: RestrictionApp},
	Rule[string]{Name: "participating", When: ContentHas("participating"), Result: RestrictionParticipating},
	Rule[string]{Name: "limited-time", When: ContentHas("limited time"), Result: RestrictionLimitedTime},
	Rule[string]{Name: "one-per", When: ContentHas("one per"), Result: RestrictionOnePer},
	Rule[string]{Name: "not-valid-with", When: ContentHas("not valid with"), Result: RestrictionNoStacking},
)

// Category infers the category of a restaurant by name.
func Category(restaurant string) model.Category {
	return Categories.First(Fields{Restaurant: Fold(restaurant)})
}

// DealType infers the deal type from the title and deal price.
func DealType(title, dealPrice string) model.DealType {
	return DealTypes.First(Fields{Title: Fold(title), Price: Fold(dealPrice)})
}

// RestrictionsFor returns the restriction notes for a title and description.
// The result is empty, never nil, when nothing applies.
func RestrictionsFor(title, description string) []string {
	return Restrictions.All(Fields{Title: Fold(title), Description: Fold(description)})
}
