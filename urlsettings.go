package viewstate

import (
	"fmt"
	"net/url"
	"strconv"
)

const (
	URLKeyCompare = "compare"
	URLKeyPage    = "page"
)

// URLSettings is the transient view state reflected into the address bar.
// It lives independently of the persisted settings.
type URLSettings struct {
	Compare *bool
	Page    *int
}

// DecodeURLSettings reads URL settings from query values. Malformed values
// are dropped and reported in a *DecodeError, like Decode does for stored
// settings.
func DecodeURLSettings(q url.Values) (URLSettings, error) {
	var us URLSettings
	var de DecodeError
	if q.Has(URLKeyCompare) {
		s := q.Get(URLKeyCompare)
		b, err := strconv.ParseBool(s)
		if err != nil {
			de.Fields = append(de.Fields, FieldError{URLKeyCompare, s, fmt.Errorf("expected boolean, got %q", s)})
		} else {
			us.Compare = &b
		}
	}
	if q.Has(URLKeyPage) {
		s := q.Get(URLKeyPage)
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			de.Fields = append(de.Fields, FieldError{URLKeyPage, s, fmt.Errorf("expected page number, got %q", s)})
		} else {
			us.Page = &n
		}
	}
	if len(de.Fields) > 0 {
		return us, &de
	}
	return us, nil
}

// Apply writes the present fields into q, leaving the other parameters
// untouched.
func (us URLSettings) Apply(q url.Values) {
	if us.Compare != nil {
		q.Set(URLKeyCompare, strconv.FormatBool(*us.Compare))
	}
	if us.Page != nil {
		q.Set(URLKeyPage, strconv.Itoa(*us.Page))
	}
}

func (us URLSettings) Encode() url.Values {
	q := make(url.Values)
	us.Apply(q)
	return q
}
