package enum

// ── Group A: Derived states (never stored) ──

const (
	PaymentStatusPaid     = "paid"
	PaymentStatusOverpaid = "overpaid"
	PaymentStatusPending  = "pending"
)

// ── Group B: Stored values ──

const (
	PaymentModeOnline  = "online"
	PaymentModeOffline = "offline"
)

const (
	RoleStaff = "STAFF"
)

// ── Group C: Meal types and lunch/dinner subcategories ──
// Custom meal keys are allowed anywhere a meal type is accepted; these are the
// ones with a dedicated dashboard bucket.

const (
	MealBreakfast = "breakfast"
	MealLunch     = "lunch"
	MealDinner    = "dinner"
	MealBakery    = "bakery"
)

const (
	SubcategoryDaal   = "daal"
	SubcategoryCurry  = "curry"
	SubcategoryPickle = "pickle"
	SubcategorySambar = "sambar"
	SubcategoryOthers = "others"
)

// MealTypes lists the recognised meal types in display order.
var MealTypes = []string{MealBreakfast, MealLunch, MealDinner, MealBakery}

// Subcategories lists the lunch/dinner subcategories in display order.
var Subcategories = []string{SubcategoryDaal, SubcategoryCurry, SubcategoryPickle, SubcategorySambar, SubcategoryOthers}

// DeliveryChargePresets are the amounts offered by the billing screen.
var DeliveryChargePresets = []int64{0, 30, 60}

// IsKnownMeal reports whether meal has its own dashboard bucket.
func IsKnownMeal(meal string) bool {
	for _, m := range MealTypes {
		if m == meal {
			return true
		}
	}
	return false
}

// HasSubcategories reports whether the catalog for meal is split by subcategory.
func HasSubcategories(meal string) bool {
	return meal == MealLunch || meal == MealDinner
}

// IsValidSubcategory reports whether sub is one of the lunch/dinner subcategories.
func IsValidSubcategory(sub string) bool {
	for _, s := range Subcategories {
		if s == sub {
			return true
		}
	}
	return false
}

// IsValidPaymentMode reports whether mode is online or offline.
func IsValidPaymentMode(mode string) bool {
	return mode == PaymentModeOnline || mode == PaymentModeOffline
}
