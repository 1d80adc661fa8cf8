package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/max950509/web-admin-fullstack-template/internal/admin/domain"
	"github.com/max950509/web-admin-fullstack-template/pkg/httpx"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// decodeBody decodes a JSON body, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := httpx.DecodeJSON(r, v, maxBodyBytes); err != nil {
		writeBadRequest(w, "Invalid JSON body")
		return false
	}
	return true
}

// pathID parses the {id} wildcard, writing a 400 when it is not a positive integer.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeBadRequest(w, "id must be a positive integer")
		return 0, false
	}
	return id, true
}

// pageFrom reads page and pageSize. Missing or unparseable values fall back
// to the defaults.
func pageFrom(r *http.Request) domain.Page {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("pageSize"))
	return domain.Page{Page: page, PageSize: size}.Normalize()
}

// optionalInt64 parses an optional query parameter.
func optionalInt64(r *http.Request, name string) (*int64, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, false
	}
	return &v, true
}

// int64List parses a comma separated list such as roleIds=1,2,3.
func int64List(raw string) ([]int64, bool) {
	var out []int64
	for part := range strings.SplitSeq(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, false
		}
		out = append(out, v)
	}
	return out, true
}

// timeParam accepts RFC 3339 timestamps and plain dates. A plain end date
// covers the whole day.
func timeParam(raw string, endOfDay bool) (*time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, true
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, false
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, true
}
