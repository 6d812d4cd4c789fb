package action

import (
	"bytes"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/reportdesk/reportdesk/server/internal/export"
)

// Reserved request parameters.
const (
	paramFile      = "_u"
	paramFileName  = "_n"
	paramPageIndex = "_i"
)

// maxFormBody bounds the urlencoded body read for parameters.
const maxFormBody = 10 << 20

type field struct {
	name, value string
}

// form is the request's parameters in arrival order, still percent-encoded:
// the urlencoded body first, then the query string. net/http's own form
// parsing drops pairs that are not validly encoded; form keeps them.
type form []field

// readForm collects the parameters of r. A urlencoded body is read and put
// back so later handlers can still parse it.
func readForm(r *http.Request) form {
	var f form
	f = f.appendRaw(formBody(r))
	return f.appendRaw(r.URL.RawQuery)
}

func (f form) appendRaw(raw string) form {
	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		name, value, _ := strings.Cut(pair, "=")
		f = append(f, field{name: export.Decode(name), value: value})
	}
	return f
}

// get returns the first value of name with its form encoding removed, or ""
// when absent.
func (f form) get(name string) string {
	for _, fd := range f {
		if fd.name == name {
			return export.Decode(fd.value)
		}
	}
	return ""
}

// params returns the builder parameters: every name not starting with "_"
// and with a non-empty value, first occurrence wins. Values are decoded
// through the form layer and then as UTF-8 percent-encoded text; a layer
// that fails to decode leaves the value as it was.
func (f form) params() map[string]string {
	params := make(map[string]string, len(f))
	for _, fd := range f {
		if fd.name == "" || strings.HasPrefix(fd.name, "_") || fd.value == "" {
			continue
		}
		if _, seen := params[fd.name]; seen {
			continue
		}
		params[fd.name] = export.Decode(export.Decode(fd.value))
	}
	return params
}

// BuildParameters collects the builder parameters of r: every parameter
// except those whose name starts with "_" and those with an empty name or
// value. Values are percent-decoded; undecodable values pass through as is.
func BuildParameters(r *http.Request) map[string]string {
	return readForm(r).params()
}

// fileToken returns the decoded _u parameter.
func fileToken(f form) string {
	return export.Decode(f.get(paramFile))
}

func formBody(r *http.Request) string {
	if r.PostForm != nil {
		// Already consumed by ParseForm; re-encode what it kept.
		return r.PostForm.Encode()
	}
	if r.Body == nil || r.Body == http.NoBody {
		return ""
	}
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
	default:
		return ""
	}
	ct, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || ct != "application/x-www-form-urlencoded" {
		return ""
	}
	b, err := io.ReadAll(io.LimitReader(r.Body, maxFormBody))
	r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(b), r.Body))
	if err != nil {
		slog.Warn("action: read form body", "path", r.URL.Path, "err", err)
		return ""
	}
	return string(b)
}
