package model

import "strings"

// DealType classifies the shape of a promotion.
type DealType string

const (
	DealTypePercentageOff DealType = "percentage_off"
	DealTypeDollarOff     DealType = "dollar_off"
	DealTypeBOGO          DealType = "bogo"
	DealTypeFreeItem      DealType = "free_item"
	DealTypeComboDeal     DealType = "combo_deal"
	DealTypeLimitedTime   DealType = "limited_time"
	DealTypeAppExclusive  DealType = "app_exclusive"
	DealTypeMembership    DealType = "membership"
)

// AllDealTypes returns every known deal type.
func AllDealTypes() []DealType {
	return []DealType{
		DealTypePercentageOff,
		DealTypeDollarOff,
		DealTypeBOGO,
		DealTypeFreeItem,
		DealTypeComboDeal,
		DealTypeLimitedTime,
		DealTypeAppExclusive,
		DealTypeMembership,
	}
}

// Valid reports whether t is one of the known deal types.
func (t DealType) Valid() bool {
	for _, known := range AllDealTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// Category is the cuisine bucket a restaurant belongs to.
type Category string

const (
	CategoryFastFood   Category = "Fast Food"
	CategoryPizza      Category = "Pizza"
	CategoryMexican    Category = "Mexican"
	CategoryCoffee     Category = "Coffee"
	CategorySandwiches Category = "Sandwiches"
	CategoryChicken    Category = "Chicken"
	CategoryBurgers    Category = "Burgers"
	CategoryAsian      Category = "Asian"
)

// AllCategories returns every known category.
func AllCategories() []Category {
	return []Category{
		CategoryFastFood,
		CategoryPizza,
		CategoryMexican,
		CategoryCoffee,
		CategorySandwiches,
		CategoryChicken,
		CategoryBurgers,
		CategoryAsian,
	}
}

// ParseCategory matches s case-insensitively against the known categories.
func ParseCategory(s string) (Category, bool) {
	for _, c := range AllCategories() {
		if strings.EqualFold(string(c), strings.TrimSpace(s)) {
			return c, true
		}
	}
	return "", false
}

// Deal is a canonical, normalized restaurant promotion. Deals are built fresh
// for every listing and never mutated afterwards.
type Deal struct {
	ID              string   `json:"id"`
	RestaurantName  string   `json:"restaurantName"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Category        Category `json:"category"`
	OriginalPrice   string   `json:"originalPrice,omitempty"`
	DealPrice       string   `json:"dealPrice,omitempty"`
	DiscountPercent *int     `json:"discountPercent,omitempty"`
	DealType        DealType `json:"dealType"`
	Restrictions    []string `json:"restrictions"`
	Latitude        float64  `json:"latitude"`
	Longitude       float64  `json:"longitude"`
	Distance        float64  `json:"distance"`
	QualityScore    int      `json:"qualityScore"`
	Verified        bool     `json:"verified"`
	Source          string   `json:"source,omitempty"`
	SourceURL       string   `json:"sourceUrl,omitempty"`
	ExpirationDate  string   `json:"expirationDate,omitempty"`
}

// Location is a pair of decimal-degree coordinates.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
