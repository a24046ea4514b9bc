package render

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Routes maps a route name to a path pattern holding an "{id}" placeholder,
// e.g. "user_page" -> "/user/{id}/".
type Routes map[string]string

// Reverse fills the pattern of the named route with id.
func (r Routes) Reverse(name string, id any) (string, bool) {
	pattern, ok := r[name]
	if !ok {
		return "", false
	}
	return strings.ReplaceAll(pattern, "{id}", formatID(id)), true
}

// context values decoded from JSON arrive as float64
func formatID(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case json.Number:
		return id.String()
	default:
		return fmt.Sprint(id)
	}
}
