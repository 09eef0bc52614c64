package models

// RosterEntry is one member of the Courtbooking membership list. Fields hold the
// export's text as is; the resolver derives salutation, postal code and phones.
type RosterEntry struct {
	Person     PersonKey
	Gender     string
	PostalCode string
	Phone      string
	Mobile     string
	Street     string
	City       string
	Email      string
}
