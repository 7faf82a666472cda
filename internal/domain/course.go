package domain

import "slices"

// Course is a learning-management course.
//
// A Course is uniquely identified by its caller-supplied ID.
type Course struct {
	// ─────────────────────────────
	// Identity (immutable)
	// ─────────────────────────────

	// ID is supplied by the author when the course is created.
	ID string `json:"id" yaml:"id" validate:"required,max=128"`

	// ─────────────────────────────
	// Description
	// ─────────────────────────────

	// Name is the display name; listings sort by it.
	Name          string   `json:"name" yaml:"name" validate:"required"`
	Category      string   `json:"category,omitempty" yaml:"category,omitempty"`
	Description   string   `json:"description,omitempty" yaml:"description,omitempty"`
	Instructor    string   `json:"instructor,omitempty" yaml:"instructor,omitempty"`
	Level         string   `json:"level,omitempty" yaml:"level,omitempty"`
	WorkloadHours int      `json:"workloadHours,omitempty" yaml:"workloadHours,omitempty" validate:"gte=0"`
	Tags          []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Modules       []Module `json:"modules,omitempty" yaml:"modules,omitempty" validate:"dive"`

	// ─────────────────────────────
	// Workflow
	// ─────────────────────────────

	// Status governs default visibility. New courses always start Pending.
	Status Status `json:"status,omitempty" yaml:"status,omitempty"`

	// CreatedAt is assigned by the store on add.
	CreatedAt Instant `json:"createdAt,omitempty" yaml:"createdAt,omitempty"`
}

// Module groups the lessons of a course, optionally closed by a quiz.
type Module struct {
	ID      string   `json:"id" yaml:"id" validate:"required"`
	Title   string   `json:"title" yaml:"title"`
	Lessons []Lesson `json:"lessons,omitempty" yaml:"lessons,omitempty"`
	Quiz    *Quiz    `json:"quiz,omitempty" yaml:"quiz,omitempty"`
}

type Lesson struct {
	ID              string `json:"id" yaml:"id"`
	Title           string `json:"title" yaml:"title"`
	Content         string `json:"content,omitempty" yaml:"content,omitempty"`
	VideoURL        string `json:"videoUrl,omitempty" yaml:"videoUrl,omitempty"`
	DurationMinutes int    `json:"durationMinutes,omitempty" yaml:"durationMinutes,omitempty"`
}

type Quiz struct {
	Title     string     `json:"title" yaml:"title"`
	Questions []Question `json:"questions,omitempty" yaml:"questions,omitempty"`
}

// Question is shared by module quizzes and assessment tests.
type Question struct {
	ID          string   `json:"id" yaml:"id"`
	Text        string   `json:"text" yaml:"text"`
	Options     []string `json:"options,omitempty" yaml:"options,omitempty"`
	AnswerIndex int      `json:"answerIndex" yaml:"answerIndex"`
}

func (c Course) Key() string { return c.ID }

// Clone returns a deep copy so callers never share slices with the store.
func (c Course) Clone() Course {
	out := c
	out.Tags = slices.Clone(c.Tags)
	if c.Modules != nil {
		out.Modules = make([]Module, len(c.Modules))
		for i, m := range c.Modules {
			out.Modules[i] = m.clone()
		}
	}
	return out
}

func (m Module) clone() Module {
	out := m
	out.Lessons = slices.Clone(m.Lessons)
	if m.Quiz != nil {
		q := *m.Quiz
		q.Questions = cloneQuestions(m.Quiz.Questions)
		out.Quiz = &q
	}
	return out
}

func cloneQuestions(qs []Question) []Question {
	if qs == nil {
		return nil
	}
	out := make([]Question, len(qs))
	for i, q := range qs {
		out[i] = q
		out[i].Options = slices.Clone(q.Options)
	}
	return out
}

// CoursePatch lists the replaceable fields of a Course. A nil field keeps the
// current value; a non-nil slice replaces the whole slice (no deep merge).
// ID and CreatedAt are not patchable.
type CoursePatch struct {
	Name          *string   `json:"name,omitempty"`
	Category      *string   `json:"category,omitempty"`
	Description   *string   `json:"description,omitempty"`
	Instructor    *string   `json:"instructor,omitempty"`
	Level         *string   `json:"level,omitempty"`
	WorkloadHours *int      `json:"workloadHours,omitempty"`
	Tags          *[]string `json:"tags,omitempty"`
	Modules       *[]Module `json:"modules,omitempty"`
	Status        *Status   `json:"status,omitempty"`
}

// Apply merges the patch onto c and returns the result.
func (p CoursePatch) Apply(c Course) Course {
	setIf(&c.Name, p.Name)
	setIf(&c.Category, p.Category)
	setIf(&c.Description, p.Description)
	setIf(&c.Instructor, p.Instructor)
	setIf(&c.Level, p.Level)
	setIf(&c.WorkloadHours, p.WorkloadHours)
	setIf(&c.Status, p.Status)
	if p.Tags != nil {
		c.Tags = slices.Clone(*p.Tags)
	}
	if p.Modules != nil {
		c.Modules = Course{Modules: *p.Modules}.Clone().Modules
	}
	return c
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
