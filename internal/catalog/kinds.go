package catalog

import (
	"cmp"
	"strings"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/catalogd/internal/domain"
)

// Collection names, also used in durable cache keys and URLs.
const (
	KindCourses = "courses"
	KindJobs    = "jobs"
	KindTests   = "tests"
)

type (
	CourseStore         = Store[domain.Course, domain.CoursePatch]
	JobPostingStore     = Store[domain.JobPosting, domain.JobPostingPatch]
	AssessmentTestStore = Store[domain.AssessmentTest, domain.AssessmentTestPatch]
)

// CoursePolicy: caller-supplied ids, approval workflow, sorted by name.
func CoursePolicy() Policy[domain.Course, domain.CoursePatch] {
	return Policy[domain.Course, domain.CoursePatch]{
		Kind: KindCourses,
		Visible: func(c domain.Course, _ domain.Instant) bool {
			return c.Status.IsActive()
		},
		Compare: func(a, b domain.Course) int {
			return compareFold(a.Name, b.Name)
		},
		Prepare: func(c domain.Course, now domain.Instant) domain.Course {
			c.Status = domain.StatusPending
			c.CreatedAt = now
			return c
		},
		Validate: func(c domain.Course) error { return domain.Validate(c) },
		SetID: func(c domain.Course, id string) domain.Course {
			c.ID = id
			return c
		},
		Apply: func(c domain.Course, p domain.CoursePatch) domain.Course {
			return p.Apply(c)
		},
		StatusPatch: func(s domain.Status) domain.CoursePatch {
			return domain.CoursePatch{Status: &s}
		},
	}
}

// JobPostingPolicy: generated ids, hidden once expired, newest posting first.
func JobPostingPolicy() Policy[domain.JobPosting, domain.JobPostingPatch] {
	return Policy[domain.JobPosting, domain.JobPostingPatch]{
		Kind: KindJobs,
		Visible: func(j domain.JobPosting, now domain.Instant) bool {
			return !j.Expired(now)
		},
		Compare: func(a, b domain.JobPosting) int {
			return cmp.Compare(b.PostedAt, a.PostedAt)
		},
		Prepare: func(j domain.JobPosting, now domain.Instant) domain.JobPosting {
			if j.PostedAt.IsZero() {
				j.PostedAt = now
			}
			j.CreatedAt = now
			return j
		},
		Validate: func(j domain.JobPosting) error { return domain.Validate(j) },
		SetID: func(j domain.JobPosting, id string) domain.JobPosting {
			j.ID = id
			return j
		},
		NewID: newJobID,
		Apply: func(j domain.JobPosting, p domain.JobPostingPatch) domain.JobPosting {
			return p.Apply(j)
		},
	}
}

// AssessmentTestPolicy: caller-supplied ids, always visible, sorted by title.
func AssessmentTestPolicy() Policy[domain.AssessmentTest, domain.AssessmentTestPatch] {
	return Policy[domain.AssessmentTest, domain.AssessmentTestPatch]{
		Kind: KindTests,
		Visible: func(domain.AssessmentTest, domain.Instant) bool {
			return true
		},
		Compare: func(a, b domain.AssessmentTest) int {
			return compareFold(a.Title, b.Title)
		},
		Prepare: func(a domain.AssessmentTest, now domain.Instant) domain.AssessmentTest {
			a.CreatedAt = now
			return a
		},
		Validate: func(a domain.AssessmentTest) error { return domain.Validate(a) },
		SetID: func(a domain.AssessmentTest, id string) domain.AssessmentTest {
			a.ID = id
			return a
		},
		Apply: func(a domain.AssessmentTest, p domain.AssessmentTestPatch) domain.AssessmentTest {
			return p.Apply(a)
		},
	}
}

// newJobID returns a time-ordered UUID (v7), falling back to a random one.
func newJobID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// compareFold compares display names case-insensitively, then exactly, so
// the order stays total.
func compareFold(a, b string) int {
	if c := cmp.Compare(strings.ToLower(a), strings.ToLower(b)); c != 0 {
		return c
	}
	return cmp.Compare(a, b)
}
