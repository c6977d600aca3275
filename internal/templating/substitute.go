package templating

import "strings"

// Placeholder is written for known tokens without a value.
const Placeholder = "-"

// Values maps token names, without braces, to their replacement.
type Values map[string]string

// Globals carries process and tenant level values.
type Globals struct {
	AppName     string
	AppURL      string
	CompanyName string
}

// Substitute replaces every known {token} in content. Unknown tokens are left
// as they are. app_name and app_url always come from globals; company_name
// falls back to globals when missing or "-".
func Substitute(content string, values Values, globals Globals) string {
	merged := Resolve(values, globals)
	for _, token := range vocabulary {
		content = strings.ReplaceAll(content, "{"+token+"}", merged[token])
	}
	return content
}

// Resolve returns the value used for every token of the vocabulary.
func Resolve(values Values, globals Globals) Values {
	merged := make(Values, len(vocabulary))
	for _, token := range vocabulary {
		v, ok := values[token]
		if !ok || v == "" {
			v = Placeholder
		}
		merged[token] = v
	}
	if v := merged[TokenCompanyName]; v == Placeholder && globals.CompanyName != "" {
		merged[TokenCompanyName] = globals.CompanyName
	}
	merged[TokenAppName] = orPlaceholder(globals.AppName)
	merged[TokenAppURL] = orPlaceholder(globals.AppURL)
	return merged
}

// NeedsCompanyName reports whether values lack a usable company_name, so the
// caller should look up the tenant setting.
func NeedsCompanyName(values Values) bool {
	v, ok := values[TokenCompanyName]
	return !ok || v == "" || v == Placeholder
}

func orPlaceholder(s string) string {
	if s == "" {
		return Placeholder
	}
	return s
}
