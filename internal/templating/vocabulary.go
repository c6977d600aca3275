// Package templating fills {token} placeholders in email and offer-letter
// content from a fixed vocabulary.
package templating

// Tokens that are always taken from Globals.
const (
	TokenAppName     = "app_name"
	TokenAppURL      = "app_url"
	TokenCompanyName = "company_name"
)

// vocabulary is replaced in this order.
var vocabulary = []string{
	// platform and company
	TokenAppName,
	TokenAppURL,
	TokenCompanyName,
	"company_email",
	"company_phone",
	"company_address",
	"company_website",
	"company_logo",
	"current_date",
	"current_year",

	// users
	"user_name",
	"user_email",
	"user_phone",
	"user_role",
	"login_url",
	"reset_password_url",
	"verification_url",
	"invitation_url",
	"temporary_password",

	// employees
	"employee_name",
	"employee_id",
	"employee_email",
	"employee_department",
	"employee_designation",
	"employee_joining_date",
	"manager_name",

	// accounting documents
	"invoice_number",
	"invoice_date",
	"invoice_due_date",
	"invoice_amount",
	"invoice_due_amount",
	"invoice_url",
	"bill_number",
	"bill_date",
	"bill_due_date",
	"bill_amount",
	"return_number",
	"return_date",
	"return_amount",
	"proposal_number",
	"proposal_date",
	"proposal_expiry_date",
	"proposal_amount",
	"proposal_url",
	"payment_amount",
	"payment_date",
	"payment_method",
	"customer_name",
	"customer_email",
	"vendor_name",
	"vendor_email",
	"currency",
	"days_overdue",

	// payroll
	"payslip_month",
	"payslip_year",
	"payslip_url",
	"salary_amount",
	"net_salary",
	"pay_date",

	// complaints
	"complaint_title",
	"complaint_date",
	"complaint_from",
	"complaint_against",
	"complaint_status",
	"complaint_description",

	// warnings
	"warning_subject",
	"warning_date",
	"warning_by",
	"warning_description",

	// leave and attendance
	"leave_type",
	"leave_start_date",
	"leave_end_date",
	"leave_status",
	"leave_reason",

	// recruitment
	"job_title",
	"job_department",
	"job_location",
	"job_url",
	"candidate_name",
	"candidate_email",
	"candidate_phone",
	"interview_date",
	"interview_time",
	"interview_location",
	"interviewer_name",
	"offer_salary",
	"offer_start_date",
	"offer_expiry_date",
	"offer_letter_url",
	"application_status",
}

// Vocabulary returns a copy of the known tokens in replacement order.
func Vocabulary() []string {
	return append([]string(nil), vocabulary...)
}

var known = func() map[string]struct{} {
	m := make(map[string]struct{}, len(vocabulary))
	for _, t := range vocabulary {
		m[t] = struct{}{}
	}
	return m
}()

// Known reports whether token belongs to the vocabulary.
func Known(token string) bool {
	_, ok := known[token]
	return ok
}
