package grocery

import "strings"

// Category is a grocery-aisle grouping.
type Category string

const (
	CategoryProduce   Category = "Produce"
	CategoryMeat      Category = "Meat & Poultry"
	CategoryDairy     Category = "Dairy & Eggs"
	CategoryPantry    Category = "Pantry"
	CategoryFrozen    Category = "Frozen"
	CategoryBeverages Category = "Beverages"
	CategoryOther     Category = "Other"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryProduce,
	CategoryMeat,
	CategoryDairy,
	CategoryPantry,
	CategoryFrozen,
	CategoryBeverages,
	CategoryOther,
}

type categoryKeywords struct {
	category Category
	keywords []string
}

// compoundKeywords are checked before categoryOrder. Each contains a shorter keyword of an
// earlier category ("cornstarch" holds "corn", "veggie broth" holds "egg").
var compoundKeywords = []categoryKeywords{
	{CategoryPantry, []string{"cornstarch", "corn starch", "cornmeal", "peppercorn", "broth", "stock"}},
	{CategoryFrozen, []string{"ice cream"}},
}

// categoryOrder is checked top to bottom; the first substring hit wins.
var categoryOrder = []categoryKeywords{
	{CategoryProduce, []string{
		"apple", "banana", "orange", "lemon", "lime", "avocado", "tomato", "potato", "onion",
		"garlic", "shallot", "scallion", "leek", "lettuce", "spinach", "kale", "arugula", "cabbage",
		"broccoli", "cauliflower", "carrot", "celery", "cucumber", "bell pepper", "chili", "jalapeño",
		"jalapeno", "mushroom", "corn", "zucchini", "squash", "eggplant", "asparagus", "green bean",
		"peas", "berry", "berries", "grape", "melon", "pineapple", "mango", "peach", "pear", "plum",
		"cherry", "cherries", "herb", "cilantro", "parsley", "basil", "mint", "thyme", "rosemary",
		"dill", "ginger", "beet", "radish", "sweet potato", "fruit", "vegetable",
	}},
	{CategoryMeat, []string{
		"chicken", "beef", "pork", "turkey", "bacon", "sausage", "ham", "steak", "lamb", "veal",
		"duck", "mince", "ground meat", "prosciutto", "pancetta", "chorizo", "salami",
		"salmon", "tuna", "shrimp", "prawn", "fish", "cod", "tilapia", "crab", "lobster",
	}},
	{CategoryDairy, []string{
		"milk", "cheese", "butter", "cream", "yogurt", "yoghurt", "egg", "parmesan", "mozzarella",
		"cheddar", "feta", "ricotta", "mascarpone", "ghee", "kefir",
	}},
	{CategoryPantry, []string{
		"flour", "sugar", "salt", "rice", "pasta", "spaghetti", "noodle", "oat", "bread", "tortilla",
		"oil", "vinegar", "sauce", "honey", "syrup", "bean", "lentil", "chickpea",
		"spice", "cumin", "paprika", "cinnamon", "oregano", "nutmeg", "vanilla", "baking",
		"yeast", "cereal", "granola", "nut", "almond", "walnut", "peanut", "seed", "mustard",
		"ketchup", "mayonnaise", "canned", "cocoa", "chocolate", "black pepper",
	}},
	{CategoryFrozen, []string{
		"frozen", "ice cube", "sorbet", "popsicle",
	}},
	{CategoryBeverages, []string{
		"juice", "water", "soda", "coffee", "tea", "wine", "beer", "kombucha", "lemonade",
	}},
}

// Categorize assigns an ingredient name to exactly one category by first keyword match in fixed
// order. "Apple juice" lands in Produce because Produce is checked before Beverages.
func Categorize(name string) Category {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return CategoryOther
	}
	if c, ok := firstMatch(n, compoundKeywords); ok {
		return c
	}
	if c, ok := firstMatch(n, categoryOrder); ok {
		return c
	}
	return CategoryOther
}

func firstMatch(name string, order []categoryKeywords) (Category, bool) {
	for _, c := range order {
		for _, kw := range c.keywords {
			if strings.Contains(name, kw) {
				return c.category, true
			}
		}
	}
	return "", false
}
