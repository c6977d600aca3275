package notify

import (
	"golang.org/x/text/language"
)

// pickContent returns the content whose locale best matches requested,
// falling back to DefaultLocale.
func pickContent(contents []Content, requested string) (Content, bool) {
	if len(contents) == 0 {
		return Content{}, false
	}
	tags := make([]language.Tag, 0, len(contents))
	valid := make([]Content, 0, len(contents))
	for _, c := range contents {
		tag, err := language.Parse(c.Locale)
		if err != nil {
			continue
		}
		tags = append(tags, tag)
		valid = append(valid, c)
	}
	if len(valid) > 0 && requested != "" {
		if want, err := language.Parse(requested); err == nil {
			_, idx, conf := language.NewMatcher(tags).Match(want)
			if conf != language.No {
				return valid[idx], true
			}
		}
	}
	for _, c := range contents {
		if c.Locale == DefaultLocale {
			return c, true
		}
	}
	return Content{}, false
}
