package docstore

import (
	"net/url"
	"strings"
)

// FormURL builds the ERP desk URL for a document, e.g.
// FormURL(base, "sales-invoice", name) -> base/app/sales-invoice/<name>.
func FormURL(base, doctype, name string) string {
	return strings.TrimRight(base, "/") + "/app/" + doctype + "/" + url.PathEscape(name)
}
