package domain

import "slices"

// JobPosting is a recruitment vacancy. Its ID is generated by the store.
type JobPosting struct {
	ID           string   `json:"id" yaml:"id"`
	Title        string   `json:"title" yaml:"title" validate:"required"`
	Department   string   `json:"department,omitempty" yaml:"department,omitempty"`
	Location     string   `json:"location,omitempty" yaml:"location,omitempty"`
	Type         string   `json:"type,omitempty" yaml:"type,omitempty"`
	Description  string   `json:"description,omitempty" yaml:"description,omitempty"`
	Requirements []string `json:"requirements,omitempty" yaml:"requirements,omitempty"`
	Salary       string   `json:"salary,omitempty" yaml:"salary,omitempty"`

	// PostedAt drives the default newest-first ordering.
	PostedAt Instant `json:"postedAt,omitempty" yaml:"postedAt,omitempty"`

	// ClosingDate is optional; a posting without one never expires.
	ClosingDate *Instant `json:"closingDate,omitempty" yaml:"closingDate,omitempty"`

	CreatedAt Instant `json:"createdAt,omitempty" yaml:"createdAt,omitempty"`
}

func (j JobPosting) Key() string { return j.ID }

func (j JobPosting) Clone() JobPosting {
	out := j
	out.Requirements = slices.Clone(j.Requirements)
	if j.ClosingDate != nil {
		d := *j.ClosingDate
		out.ClosingDate = &d
	}
	return out
}

// Expired reports whether the posting closed before now.
func (j JobPosting) Expired(now Instant) bool {
	return j.ClosingDate != nil && !j.ClosingDate.IsZero() && j.ClosingDate.Before(now)
}

// JobPostingPatch lists the replaceable fields of a JobPosting.
// ClearClosingDate removes the closing date; it wins over ClosingDate.
type JobPostingPatch struct {
	Title            *string   `json:"title,omitempty"`
	Department       *string   `json:"department,omitempty"`
	Location         *string   `json:"location,omitempty"`
	Type             *string   `json:"type,omitempty"`
	Description      *string   `json:"description,omitempty"`
	Requirements     *[]string `json:"requirements,omitempty"`
	Salary           *string   `json:"salary,omitempty"`
	PostedAt         *Instant  `json:"postedAt,omitempty"`
	ClosingDate      *Instant  `json:"closingDate,omitempty"`
	ClearClosingDate bool      `json:"clearClosingDate,omitempty"`
}

func (p JobPostingPatch) Apply(j JobPosting) JobPosting {
	setIf(&j.Title, p.Title)
	setIf(&j.Department, p.Department)
	setIf(&j.Location, p.Location)
	setIf(&j.Type, p.Type)
	setIf(&j.Description, p.Description)
	setIf(&j.Salary, p.Salary)
	setIf(&j.PostedAt, p.PostedAt)
	if p.Requirements != nil {
		j.Requirements = slices.Clone(*p.Requirements)
	}
	switch {
	case p.ClearClosingDate:
		j.ClosingDate = nil
	case p.ClosingDate != nil:
		d := *p.ClosingDate
		j.ClosingDate = &d
	}
	return j
}
