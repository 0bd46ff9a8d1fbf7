// Package form decodes URL-encoded request bodies into flat submissions.
package form

import (
	"fmt"
	"net/url"
	"sort"
)

// Submission maps a form field name to its value. Only the first value of a
// repeated key is kept.
type Submission map[string]string

// Parse decodes an application/x-www-form-urlencoded body.
func Parse(body []byte) (Submission, error) {
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse form body: %w", err)
	}
	return FromValues(values), nil
}

// FromValues flattens url.Values, keeping the first value of each key.
func FromValues(values url.Values) Submission {
	sub := make(Submission, len(values))
	for key, vals := range values {
		if len(vals) == 0 {
			sub[key] = ""
			continue
		}
		sub[key] = vals[0]
	}
	return sub
}

// Values converts the submission back to url.Values.
func (s Submission) Values() url.Values {
	values := make(url.Values, len(s))
	for key, val := range s {
		values.Set(key, val)
	}
	return values
}

// Encode returns the URL-encoded form, sorted by key.
func (s Submission) Encode() string {
	return s.Values().Encode()
}

// Keys returns the field names in sorted order.
func (s Submission) Keys() []string {
	keys := make([]string, 0, len(s))
	for key := range s {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
