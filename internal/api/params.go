package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// GetPathParam returns the part of the path after prefix, so with prefix
// "/refs/" a request for /refs/src/app.ts%23main yields "src/app.ts#main".
func GetPathParam(r *http.Request, prefix string) string {
	path := r.URL.Path
	if !strings.HasPrefix(path, prefix) {
		return ""
	}
	return strings.TrimPrefix(path, prefix)
}

// QueryParamInt parses a non-negative integer query parameter. A missing
// parameter yields defaultVal.
func QueryParamInt(r *http.Request, name string, defaultVal int) (int, error) {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s parameter: %q is not an integer", name, val)
	}
	if i < 0 {
		return 0, fmt.Errorf("%s must be non-negative", name)
	}
	return i, nil
}

// QueryParamList collects a repeated or comma-separated parameter, trimming
// blanks: ?entry=a,b&entry=c gives [a b c].
func QueryParamList(r *http.Request, name string) []string {
	var out []string
	for _, raw := range r.URL.Query()[name] {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// routeLabel collapses parameterized paths to their route for metrics.
func routeLabel(path string) string {
	for _, prefix := range []string{"/refs/", "/callgraph/"} {
		if strings.HasPrefix(path, prefix) {
			return prefix + ":id"
		}
	}
	switch path {
	case "/", "/health", "/meta", "/entrypoints", "/tree", "/architecture",
		"/statistics", "/flow", "/reload", "/metrics":
		return path
	}
	return "other"
}
