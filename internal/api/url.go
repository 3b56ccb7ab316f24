package api

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// BuildURL joins base and resource and appends params as a query string.
// Nil values are omitted, booleans render as "true"/"false", and keys are
// sorted.
func BuildURL(base, resource string, params map[string]any) string {
	u := strings.TrimRight(base, "/") + "/" + strings.TrimLeft(resource, "/")
	values := url.Values{}
	for k, v := range params {
		if v == nil {
			continue
		}
		values.Set(k, formatParam(v))
	}
	if len(values) == 0 {
		return u
	}
	return u + "?" + values.Encode()
}

func formatParam(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// DetailURL is the path of one item of resource.
func DetailURL(resource, id string) string {
	if !strings.HasSuffix(resource, "/") {
		resource += "/"
	}
	return resource + url.PathEscape(id) + "/"
}
