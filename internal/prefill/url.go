// Package prefill encodes resolved answers into a Google Form pre-fill URL.
package prefill

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/formfill-cli/internal/model"
)

const (
	entryPrefix = "entry."
	uspKey      = "usp"
	uspPrefill  = "pp_url"
	formsHost   = "docs.google.com"
)

var formIDRe = regexp.MustCompile(`/forms/(?:u/\d+/)?d/e/([A-Za-z0-9_-]+)`)

// Build appends one entry.<id>=<value> parameter per answer value to
// baseURL, in answer order. Unresolved answers and empty values are
// omitted. The existing query of baseURL is kept as-is and usp=pp_url is
// added when missing.
func Build(baseURL string, answers []model.Answer) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", eris.Wrapf(err, "prefill: parse base url %q", baseURL)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", eris.Errorf("prefill: base url %q is not absolute", baseURL)
	}

	var b strings.Builder
	b.WriteString(u.RawQuery)
	add := func(k, v string) {
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(v))
	}

	if !hasUsp(u.RawQuery) {
		add(uspKey, uspPrefill)
	}
	for _, a := range answers {
		if !a.Resolved() {
			continue
		}
		for _, v := range a.Values {
			if v == "" {
				continue
			}
			add(entryPrefix+a.QuestionID, v)
		}
	}

	u.RawQuery = b.String()
	return u.String(), nil
}

func hasUsp(rawQuery string) bool {
	q, err := url.ParseQuery(rawQuery)
	if err != nil {
		return strings.Contains(rawQuery, uspKey+"=")
	}
	return q.Has(uspKey)
}

// NormalizeFormURL rewrites any public form URL (viewform, formResponse or
// an existing pre-fill link) to its canonical viewform address. The query
// string is preserved.
func NormalizeFormURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return "", eris.Wrapf(err, "prefill: parse form url %q", raw)
	}
	m := formIDRe.FindStringSubmatch(u.Path)
	if m == nil {
		return "", eris.Errorf("prefill: %q is not a public form url", raw)
	}
	out := url.URL{
		Scheme:   "https",
		Host:     formsHost,
		Path:     "/forms/d/e/" + m[1] + "/viewform",
		RawQuery: u.RawQuery,
	}
	return out.String(), nil
}

// Entries decodes the entry.<id> parameters of a pre-fill URL back into
// question id / values pairs, in first-seen order. Source is left empty.
func Entries(prefillURL string) ([]model.Answer, error) {
	u, err := url.Parse(prefillURL)
	if err != nil {
		return nil, eris.Wrapf(err, "prefill: parse url %q", prefillURL)
	}
	var out []model.Answer
	index := map[string]int{}
	for _, pair := range strings.Split(u.RawQuery, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(k)
		if err != nil {
			return nil, eris.Wrapf(err, "prefill: decode key %q", k)
		}
		if !strings.HasPrefix(key, entryPrefix) {
			continue
		}
		val, err := url.QueryUnescape(v)
		if err != nil {
			return nil, eris.Wrapf(err, "prefill: decode value for %s", key)
		}
		id := strings.TrimPrefix(key, entryPrefix)
		i, ok := index[id]
		if !ok {
			i = len(out)
			index[id] = i
			out = append(out, model.Answer{QuestionID: id})
		}
		out[i].Values = append(out[i].Values, val)
	}
	return out, nil
}
