package httpx

import (
	"encoding/json"
	"net/http"
)

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// OK sends a success envelope. The payload map is merged on top of
// {"success": true}.
func OK(w http.ResponseWriter, payload map[string]any) {
	body := map[string]any{"success": true}
	for k, v := range payload {
		body[k] = v
	}
	JSON(w, http.StatusOK, body)
}

// Error sends the failure envelope for err. Taxonomy errors carry their own
// message; anything else is reported generically so internal failures never
// leak to callers. Extra fields (e.g. "item_code": nil) are merged into the
// envelope.
func Error(w http.ResponseWriter, err error, extra map[string]any) {
	status := StatusOf(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error, the failure has been recorded"
	}
	body := map[string]any{"success": false, "message": message}
	for k, v := range extra {
		body[k] = v
	}
	JSON(w, status, body)
}
