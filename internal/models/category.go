package models

// Category describes one entry of the closed category schema. The schema is
// the single source of truth for extraction, refinement, merging, and the
// market-data column set; downstream consumers depend on the key names.
type Category struct {
	Name         string
	Description  string
	CaptureGuide string
	MergeGuide   string
}

// OtherStructuredField is the derived JSON column accompanying "other".
const OtherStructuredField = "other_structured"

// CategorySchema returns the closed category list. Descriptions may contain
// the [hotelName] placeholder, substituted at prompt-build time.
func CategorySchema() []Category {
	return []Category{
		{
			Name:        "basic_information",
			Description: "General identifying information about [hotelName]: brand, star rating, number of rooms and floors, year built or renovated, address, check-in and check-out times.",
		},
		{
			Name:        "contacts",
			Description: "Phone numbers, email addresses, and other contact channels for [hotelName] or its departments.",
			MergeGuide:  "On conflicting phone numbers or email addresses, prefer the newer value.",
		},
		{
			Name:        "accessibility",
			Description: "Accessibility features of [hotelName]: wheelchair access, accessible rooms and bathrooms, hearing/visual assistance, service animal policy.",
		},
		{
			Name:         "amenities",
			Description:  "Property-wide amenities at [hotelName]: pools, spas, lounges, shops, concierge, and similar facilities.",
			CaptureGuide: "List every amenity mentioned; do not summarize categories away.",
		},
		{
			Name:        "cleanliness_enhancements",
			Description: "Enhanced cleaning, sanitation, and health-safety measures at [hotelName].",
		},
		{
			Name:        "food_beverage",
			Description: "Restaurants, bars, room service, breakfast offerings, and dining hours at [hotelName].",
		},
		{
			Name:         "guest_rooms",
			Description:  "Room types, bedding, views, in-room amenities, and room rates at [hotelName].",
			CaptureGuide: "Keep room type names and prices exactly as written.",
		},
		{
			Name:        "guest_services_front_desk",
			Description: "Front desk hours, luggage storage, wake-up calls, currency exchange, and similar guest services at [hotelName].",
		},
		{
			Name:        "housekeeping_laundry",
			Description: "Housekeeping schedules, laundry, dry cleaning, and ironing services at [hotelName].",
		},
		{
			Name:        "local_area_information",
			Description: "Nearby attractions, landmarks, neighborhoods, and distances from [hotelName].",
		},
		{
			Name:        "meeting_events",
			Description: "Meeting rooms, event spaces, banquet capacity, and business event services at [hotelName].",
		},
		{
			Name:        "on_property_convenience",
			Description: "Convenience facilities at [hotelName]: ATMs, vending machines, gift shops, markets.",
		},
		{
			Name:        "parking_transportation",
			Description: "Parking options and fees, valet service, airport shuttles, and transportation assistance at [hotelName].",
			MergeGuide:  "On conflicting prices, prefer the newer value.",
		},
		{
			Name:         "policies",
			Description:  "Policies of [hotelName]: cancellation, deposits, pets, smoking, age requirements, extra beds.",
			CaptureGuide: "Keep policy wording precise; numbers, fees, and cut-off times must not be paraphrased.",
		},
		{
			Name:        "recreation_fitness",
			Description: "Fitness center, sports facilities, classes, and recreation activities at [hotelName].",
		},
		{
			Name:        "safety_security",
			Description: "Security measures, smoke detectors, safes, and emergency procedures at [hotelName].",
		},
		{
			Name:        "technology_business_services",
			Description: "Wi-Fi, business center, printing, and in-room technology at [hotelName].",
		},
		{
			Name:         "faq",
			Description:  "Explicit question-and-answer content published by [hotelName].",
			CaptureGuide: "Preserve each question and answer verbatim; never paraphrase.",
			MergeGuide:   "Keep every distinct question; replace an answer only when the newer text answers the same question.",
		},
		{
			// Heterogeneous catch-all; no field-specific prioritization rules.
			Name:        "other",
			Description: "Noteworthy information about [hotelName] that fits no other category.",
		},
	}
}

// CategoryNames returns the schema names in declaration order.
func CategoryNames() []string {
	schema := CategorySchema()
	names := make([]string, 0, len(schema))
	for _, c := range schema {
		names = append(names, c.Name)
	}
	return names
}

// IsCategoryName reports whether name belongs to the closed schema.
func IsCategoryName(name string) bool {
	for _, c := range CategorySchema() {
		if c.Name == name {
			return true
		}
	}
	return false
}
