package export

import (
	"net/url"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

const (
	filePrefix        = "ureport-"
	definitionSuffix  = ".ureport.xml"
	defaultBaseName   = "default"
	categorySeparator = ":"
)

// FileName builds the download name for an export.
//
// An explicit name is percent-decoded and gets ext appended unless it already
// ends with it (case-insensitive). Otherwise the name is derived from token:
// any "category:" prefix and the definition suffix are stripped and the
// product prefix added. A blank token, or one with nothing left after
// stripping, yields the default name.
func FileName(token, explicit, ext string) string {
	if strings.TrimSpace(explicit) != "" {
		name := Decode(explicit)
		if !strings.HasSuffix(strings.ToLower(name), strings.ToLower(ext)) {
			name += ext
		}
		return name
	}

	if strings.TrimSpace(token) == "" {
		return filePrefix + defaultBaseName + ext
	}
	name := token
	if i := strings.LastIndex(name, categorySeparator); i >= 0 {
		name = name[i+1:]
	}
	if strings.HasSuffix(strings.ToLower(name), definitionSuffix) {
		name = name[:len(name)-len(definitionSuffix)]
	}
	if strings.TrimSpace(name) == "" {
		name = defaultBaseName
	}
	return filePrefix + name + ext
}

// EncodeFilename percent-encodes name for a Content-Disposition header.
//
// By default the UTF-8 bytes are encoded once, with spaces as %20. In legacy
// mode the UTF-8 bytes are first reinterpreted as ISO-8859-1 characters and
// the result encoded again, which is what older console clients expect.
func EncodeFilename(name string, legacy bool) string {
	if legacy {
		latin, err := charmap.ISO8859_1.NewDecoder().String(name)
		if err == nil {
			name = latin
		}
		return url.QueryEscape(name)
	}
	return strings.ReplaceAll(url.QueryEscape(name), "+", "%20")
}

// Decode percent-decodes s as UTF-8 form data. Values that are not validly
// encoded are returned unchanged.
func Decode(s string) string {
	v, err := url.QueryUnescape(s)
	if err != nil {
		return s
	}
	return v
}
