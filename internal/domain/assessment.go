package domain

// AssessmentTest is a standalone test used in candidate triage.
type AssessmentTest struct {
	ID              string     `json:"id" yaml:"id" validate:"required,max=128"`
	Title           string     `json:"title" yaml:"title" validate:"required"`
	Description     string     `json:"description,omitempty" yaml:"description,omitempty"`
	DurationMinutes int        `json:"durationMinutes,omitempty" yaml:"durationMinutes,omitempty" validate:"gte=0"`
	PassingScore    int        `json:"passingScore,omitempty" yaml:"passingScore,omitempty" validate:"gte=0,lte=100"`
	Questions       []Question `json:"questions,omitempty" yaml:"questions,omitempty"`
	CreatedAt       Instant    `json:"createdAt,omitempty" yaml:"createdAt,omitempty"`
}

func (a AssessmentTest) Key() string { return a.ID }

func (a AssessmentTest) Clone() AssessmentTest {
	out := a
	out.Questions = cloneQuestions(a.Questions)
	return out
}

type AssessmentTestPatch struct {
	Title           *string     `json:"title,omitempty"`
	Description     *string     `json:"description,omitempty"`
	DurationMinutes *int        `json:"durationMinutes,omitempty"`
	PassingScore    *int        `json:"passingScore,omitempty"`
	Questions       *[]Question `json:"questions,omitempty"`
}

func (p AssessmentTestPatch) Apply(a AssessmentTest) AssessmentTest {
	setIf(&a.Title, p.Title)
	setIf(&a.Description, p.Description)
	setIf(&a.DurationMinutes, p.DurationMinutes)
	setIf(&a.PassingScore, p.PassingScore)
	if p.Questions != nil {
		a.Questions = cloneQuestions(*p.Questions)
	}
	return a
}
