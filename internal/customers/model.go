// Package customers resolves invoice customer names to persisted customer
// records, creating the customer and its billing address on first sight.
package customers

// Customer is the document created for a previously-unseen customer name.
// The name doubles as the document reference.
type Customer struct {
	Name           string
	CustomerType   string
	CustomerGroup  string
	Territory      string
	Email          string
	Mobile         string
	DefaultCompany string

	// Jurisdiction extension fields, set only when the docfield registry
	// declares the target schema supports them.
	VATRegistrationNumber string
	AdditionalIDs         []AdditionalID
}

// AdditionalID is a child row holding an extra registration number, e.g.
// the commercial registration number.
type AdditionalID struct {
	TypeName string
	TypeCode string
	Value    string
}

// Address is a billing address linked to a customer. Exactly one exists per
// customer, keyed by the derived title.
type Address struct {
	Title          string
	AddressType    string
	Line1          string
	Line2          string
	City           string
	County         string
	State          string
	Pincode        string
	Country        string
	BuildingNumber string
	Area           string
	Customer       string
}
