package domain

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
	"strings"
)

// Missing marks a field the external parser could not extract. It is distinct
// from a present-but-empty value: absent slices decode to nil, present-but-empty
// ones to a non-nil empty slice.
const Missing = "MISSING"

// Fingerprint returns the dedup key for a resume's raw bytes:
// its MD5 digest as uppercase hex.
func Fingerprint(content []byte) string {
	sum := md5.Sum(content)
	return strings.ToUpper(fmt.Sprintf("%x", sum))
}

// Resume is the decoded payload returned by the external parsing service.
// Any substructure may be legitimately absent, so everything nested is a
// pointer and every accessor nil-checks its ancestors.
type Resume struct {
	Data  *ResumeData `json:"data"`
	Meta  *ResumeMeta `json:"meta"`
	Error *ParseError `json:"error"`
}

type ResumeData struct {
	Name           *PersonName      `json:"name"`
	Emails         []string         `json:"emails"`
	PhoneNumbers   []string         `json:"phoneNumbers"`
	Websites       []string         `json:"websites"`
	Skills         []string         `json:"skills"`
	Education      []Education      `json:"education"`
	WorkExperience []WorkExperience `json:"workExperience"`
	Sections       []Section        `json:"sections"`
	Summary        string           `json:"summary"`
	Objective      string           `json:"objective"`
}

type PersonName struct {
	Raw    string `json:"raw"`
	Title  string `json:"title"`
	First  string `json:"first"`
	Middle string `json:"middle"`
	Last   string `json:"last"`
}

type Education struct {
	Organization  string          `json:"organization"`
	Accreditation *Accreditation  `json:"accreditation"`
	Grade         *Grade          `json:"grade"`
	Dates         *EducationDates `json:"dates"`
}

type Accreditation struct {
	Education      string `json:"education"`
	EducationLevel string `json:"educationLevel"`
}

type Grade struct {
	Raw    string  `json:"raw"`
	Metric string  `json:"metric"`
	Value  *string `json:"value"`
}

type EducationDates struct {
	CompletionDate *string `json:"completionDate"`
	IsCurrent      bool    `json:"isCurrent"`
}

type WorkExperience struct {
	JobTitle       string     `json:"jobTitle"`
	Organization   string     `json:"organization"`
	Dates          *WorkDates `json:"dates"`
	JobDescription string     `json:"jobDescription"`
}

type WorkDates struct {
	StartDate        *string `json:"startDate"`
	EndDate          *string `json:"endDate"`
	MonthsInPosition int     `json:"monthsInPosition"`
	IsCurrent        bool    `json:"isCurrent"`
}

type Section struct {
	SectionType string `json:"sectionType"`
	PageIndex   int    `json:"pageIndex"`
	Text        string `json:"text"`
}

type ResumeMeta struct {
	Identifier string `json:"identifier"`
	Ready      bool   `json:"ready"`
	Failed     bool   `json:"failed"`
	FileName   string `json:"fileName"`
}

type ParseError struct {
	ErrorCode   string `json:"errorCode"`
	ErrorDetail string `json:"errorDetail"`
}

// DecodeResume parses a raw result payload. Unknown fields and null-valued
// fields are dropped silently.
func DecodeResume(raw []byte) (*Resume, error) {
	var r Resume
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("decode resume payload: %w", err)
	}
	return &r, nil
}

// Ready reports whether the external service finished parsing. A payload
// returned after the await budget expired may still be not-ready; callers that
// care must check this before trusting the data.
func (r *Resume) Ready() bool {
	if r == nil || r.Meta == nil {
		return false
	}
	return r.Meta.Ready
}

func (r *Resume) data() *ResumeData {
	if r == nil {
		return nil
	}
	return r.Data
}

// Name returns the candidate's full name, or the Missing sentinel.
func (r *Resume) Name() string {
	data := r.data()
	if data == nil || data.Name == nil {
		return Missing
	}
	parts := make([]string, 0, 4)
	for _, p := range []string{data.Name.Title, data.Name.First, data.Name.Middle, data.Name.Last} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return Missing
	}
	return strings.Join(parts, " ")
}

// Emails returns the extracted email addresses, nil when absent.
func (r *Resume) Emails() []string {
	data := r.data()
	if data == nil {
		return nil
	}
	return data.Emails
}

// Phones returns the extracted phone numbers, nil when absent.
func (r *Resume) Phones() []string {
	data := r.data()
	if data == nil {
		return nil
	}
	return data.PhoneNumbers
}

// Links returns the extracted websites, nil when absent.
func (r *Resume) Links() []string {
	data := r.data()
	if data == nil {
		return nil
	}
	return data.Websites
}

// Skills returns the extracted skills, nil when absent.
func (r *Resume) Skills() []string {
	data := r.data()
	if data == nil {
		return nil
	}
	return data.Skills
}

// EducationHistory returns the education entries, nil when absent.
func (r *Resume) EducationHistory() []Education {
	data := r.data()
	if data == nil {
		return nil
	}
	return data.Education
}

// WorkHistory returns the work experience entries, nil when absent.
func (r *Resume) WorkHistory() []WorkExperience {
	data := r.data()
	if data == nil {
		return nil
	}
	return data.WorkExperience
}

// Sections returns the extracted text sections, nil when absent.
func (r *Resume) Sections() []Section {
	data := r.data()
	if data == nil {
		return nil
	}
	return data.Sections
}

// SectionNames returns the section type of every extracted section.
func (r *Resume) SectionNames() []string {
	sections := r.Sections()
	if sections == nil {
		return nil
	}
	names := make([]string, 0, len(sections))
	for _, s := range sections {
		names = append(names, s.SectionType)
	}
	return names
}

// School returns the institution name, or the Missing sentinel.
func (e Education) School() string {
	if e.Organization == "" {
		return Missing
	}
	return e.Organization
}

// Degree returns the accreditation name, or the Missing sentinel.
func (e Education) Degree() string {
	if e.Accreditation == nil || e.Accreditation.Education == "" {
		return Missing
	}
	return e.Accreditation.Education
}

// GPA returns the grade value, or the Missing sentinel.
func (e Education) GPA() string {
	if e.Grade == nil || e.Grade.Value == nil {
		return Missing
	}
	return *e.Grade.Value
}

// GradDate returns the completion date, or the Missing sentinel.
func (e Education) GradDate() string {
	if e.Dates == nil || e.Dates.CompletionDate == nil {
		return Missing
	}
	return *e.Dates.CompletionDate
}

// Title returns the job title, or the Missing sentinel.
func (w WorkExperience) Title() string {
	if w.JobTitle == "" {
		return Missing
	}
	return w.JobTitle
}

// Company returns the employer name, or the Missing sentinel.
func (w WorkExperience) Company() string {
	if w.Organization == "" {
		return Missing
	}
	return w.Organization
}

// Description returns the role description, or the Missing sentinel.
func (w WorkExperience) Description() string {
	if w.JobDescription == "" {
		return Missing
	}
	return w.JobDescription
}

// DateRange formats "start - end", substituting the Missing sentinel
// independently for either side.
func (w WorkExperience) DateRange() string {
	if w.Dates == nil {
		return Missing
	}
	start, end := Missing, Missing
	if w.Dates.StartDate != nil {
		start = *w.Dates.StartDate
	}
	if w.Dates.EndDate != nil {
		end = *w.Dates.EndDate
	}
	return start + " - " + end
}
