// Package docstore describes what the target ERP schema supports. The
// gateway never introspects the ERP at runtime; optional extension fields
// are declared here explicitly and anything undeclared is skipped.
package docstore

import "strings"

// FieldRegistry maps a document type to the optional field names its target
// schema carries. Entries use "doctype.field" form, e.g.
// "customer.custom_vat_registration_number" or "sales_invoice.qr_code".
type FieldRegistry struct {
	fields map[string]map[string]struct{}
}

// NewFieldRegistry builds a registry from "doctype.field" entries. Malformed
// entries are ignored.
func NewFieldRegistry(entries []string) *FieldRegistry {
	reg := &FieldRegistry{fields: make(map[string]map[string]struct{})}
	for _, entry := range entries {
		doctype, field, ok := strings.Cut(strings.TrimSpace(entry), ".")
		if !ok || doctype == "" || field == "" {
			continue
		}
		if reg.fields[doctype] == nil {
			reg.fields[doctype] = make(map[string]struct{})
		}
		reg.fields[doctype][field] = struct{}{}
	}
	return reg
}

// Supports reports whether the doctype carries the given optional field.
func (r *FieldRegistry) Supports(doctype, field string) bool {
	if r == nil {
		return false
	}
	_, ok := r.fields[doctype][field]
	return ok
}
