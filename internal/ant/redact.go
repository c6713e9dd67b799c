package ant

import "strings"

const redactedMarker = "[REDACTED]"

// redactor masks known secret values in text forwarded to the logger.
type redactor struct {
	r *strings.Replacer
}

func newRedactor(secrets []string) redactor {
	var pairs []string
	for _, s := range secrets {
		if s == "" {
			continue
		}
		pairs = append(pairs, s, redactedMarker)
	}
	if len(pairs) == 0 {
		return redactor{}
	}
	return redactor{r: strings.NewReplacer(pairs...)}
}

func (r redactor) apply(s string) string {
	if r.r == nil {
		return s
	}
	return r.r.Replace(s)
}
