package templating

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

var globals = Globals{AppName: "Workdesk", AppURL: "https://workdesk.example", CompanyName: "Acme Ltd"}

func TestSubstituteSuppliedAndMissing(t *testing.T) {
	content := "Hi {customer_name}, invoice {invoice_number} of {invoice_amount} is due {invoice_due_date}."
	got := Substitute(content, Values{"customer_name": "Jane", "invoice_number": "SI-2024-05-001"}, globals)
	assert.Equal(t, "Hi Jane, invoice SI-2024-05-001 of - is due -.", got)
}

func TestSubstituteEveryTokenDefaultsToPlaceholder(t *testing.T) {
	var b strings.Builder
	for _, token := range Vocabulary() {
		b.WriteString("{" + token + "}|")
	}
	got := Substitute(b.String(), nil, Globals{})
	parts := strings.Split(strings.TrimSuffix(got, "|"), "|")
	assert.Len(t, parts, len(Vocabulary()))
	for i, part := range parts {
		assert.Equal(t, Placeholder, part, Vocabulary()[i])
	}
}

func TestSubstituteForcesAppGlobals(t *testing.T) {
	got := Substitute("{app_name} at {app_url}", Values{"app_name": "Evil", "app_url": "http://phish"}, globals)
	assert.Equal(t, "Workdesk at https://workdesk.example", got)
}

func TestSubstituteCompanyNameFallback(t *testing.T) {
	assert.Equal(t, "Acme Ltd", Substitute("{company_name}", nil, globals))
	assert.Equal(t, "Acme Ltd", Substitute("{company_name}", Values{"company_name": "-"}, globals))
	assert.Equal(t, "Globex", Substitute("{company_name}", Values{"company_name": "Globex"}, globals))
	assert.Equal(t, "-", Substitute("{company_name}", nil, Globals{}))
}

func TestSubstituteLeavesUnknownTokens(t *testing.T) {
	got := Substitute("{unknown_token} {user_name} {USER_NAME}", Values{"user_name": "sam"}, globals)
	assert.Equal(t, "{unknown_token} sam {USER_NAME}", got)
}

func TestSubstituteReplacesEveryOccurrence(t *testing.T) {
	got := Substitute("{job_title}/{job_title}", Values{"job_title": "Engineer"}, globals)
	assert.Equal(t, "Engineer/Engineer", got)
}

func TestVocabularyIsUniqueAndSized(t *testing.T) {
	seen := map[string]bool{}
	for _, token := range Vocabulary() {
		assert.False(t, seen[token], token)
		seen[token] = true
		assert.True(t, Known(token))
	}
	assert.GreaterOrEqual(t, len(seen), 85)
	assert.False(t, Known("nope"))
}

func TestNeedsCompanyName(t *testing.T) {
	assert.True(t, NeedsCompanyName(nil))
	assert.True(t, NeedsCompanyName(Values{"company_name": "-"}))
	assert.False(t, NeedsCompanyName(Values{"company_name": "Acme"}))
}
