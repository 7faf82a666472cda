package catalog

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/MrSnakeDoc/catalogd/internal/cache"
	"github.com/MrSnakeDoc/catalogd/internal/domain"
	"github.com/MrSnakeDoc/catalogd/internal/store"
	"github.com/MrSnakeDoc/catalogd/internal/store/memory"
)

// op is one generated mutation against a course store.
type op struct {
	Kind   int // 0 add, 1 update, 2 status, 3 delete
	ID     int
	Name   string
	Status int
}

var statuses = []domain.Status{
	domain.StatusActive, domain.StatusPending, domain.StatusRejected, domain.StatusDraft,
}

func genOp() gopter.Gen {
	return gopter.CombineGens(
		gen.IntRange(0, 3),
		gen.IntRange(0, 7),
		gen.AlphaString(),
		gen.IntRange(0, len(statuses)-1),
	).Map(func(v []any) op {
		return op{Kind: v[0].(int), ID: v[1].(int), Name: v[2].(string), Status: v[3].(int)}
	})
}

func courseID(n int) string { return fmt.Sprintf("C%d", n) }

func courseName(o op) string {
	if o.Name == "" {
		return "unnamed"
	}
	return o.Name
}

// run applies ops and tracks the expected set of ids alongside the store.
func run(s *CourseStore, ops []op) (map[string]bool, bool) {
	ctx := context.Background()
	want := map[string]bool{}
	for _, o := range ops {
		id := courseID(o.ID)
		switch o.Kind {
		case 0:
			_, err := s.Add(ctx, domain.Course{ID: id, Name: courseName(o)})
			if (err == nil) == want[id] {
				return nil, false
			}
			want[id] = true
		case 1:
			name := courseName(o)
			if _, ok := s.Update(ctx, id, domain.CoursePatch{Name: &name}); ok != want[id] {
				return nil, false
			}
		case 2:
			if _, ok, err := s.UpdateStatus(ctx, id, statuses[o.Status]); err != nil || ok != want[id] {
				return nil, false
			}
		case 3:
			if err := s.Delete(ctx, id); (err == nil) != want[id] {
				return nil, false
			}
			delete(want, id)
		}
	}
	return want, true
}

func properties(t *testing.T) *gopter.Properties {
	t.Helper()
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	return gopter.NewProperties(parameters)
}

func TestStoreProperties(t *testing.T) {
	properties := properties(t)
	ops := gen.SliceOf(genOp())

	properties.Property("ids stay unique and match the model", prop.ForAll(
		func(ops []op) bool {
			s, _ := newCourses(t)
			want, ok := run(s, ops)
			if !ok || s.Len() != len(want) {
				return false
			}
			seen := map[string]bool{}
			for _, c := range s.Snapshot() {
				if seen[c.ID] || !want[c.ID] {
					return false
				}
				seen[c.ID] = true
			}
			return true
		},
		ops,
	))

	properties.Property("durable mirror equals the in-memory collection", prop.ForAll(
		func(ops []op) bool {
			b := memory.New()
			key := store.CollectionKey("t", KindCourses)
			s := New(context.Background(), CoursePolicy(), cache.NewDurable[domain.Course](b, key, nil), nil, WithClock(clock))
			if _, ok := run(s, ops); !ok {
				return false
			}
			restarted := New(context.Background(), CoursePolicy(), cache.NewDurable[domain.Course](b, key, nil), nil, WithClock(clock))
			return reflect.DeepEqual(s.Snapshot(), restarted.Snapshot())
		},
		ops,
	))

	properties.Property("active listing is the active subset in name order", prop.ForAll(
		func(ops []op) bool {
			s, _ := newCourses(t)
			if _, ok := run(s, ops); !ok {
				return false
			}
			all := s.List(true)
			active := s.List(false)
			if len(all) != s.Len() {
				return false
			}
			for _, c := range active {
				if !c.Status.IsActive() {
					return false
				}
			}
			var filtered []domain.Course
			for _, c := range all {
				if c.Status.IsActive() {
					filtered = append(filtered, c)
				}
			}
			sorted := slices.IsSortedFunc(all, func(a, b domain.Course) int {
				if c := compareFold(a.Name, b.Name); c != 0 {
					return c
				}
				return compareFold(a.ID, b.ID)
			})
			return sorted && len(filtered) == len(active) && reflect.DeepEqual(ids(filtered), ids(active))
		},
		ops,
	))

	properties.Property("listing is deterministic", prop.ForAll(
		func(ops []op) bool {
			s, _ := newCourses(t)
			if _, ok := run(s, ops); !ok {
				return false
			}
			return reflect.DeepEqual(s.List(true), s.List(true))
		},
		ops,
	))

	properties.TestingRun(t)
}

func TestEntityProperties(t *testing.T) {
	properties := properties(t)

	properties.Property("add then get returns the added entity", prop.ForAll(
		func(id, name string, tags []string) bool {
			s, _ := newCourses(t)
			added, err := s.Add(context.Background(), domain.Course{ID: "C" + id, Name: "N" + name, Tags: tags})
			if err != nil {
				return false
			}
			got, ok := s.Get(added.ID)
			return ok && reflect.DeepEqual(added, got) && got.Status == domain.StatusPending
		},
		gen.AlphaString(), gen.AlphaString(), gen.SliceOf(gen.AlphaString()),
	))

	properties.Property("delete then get misses", prop.ForAll(
		func(id string) bool {
			s, _ := newCourses(t, domain.Course{ID: "C" + id, Name: "x"})
			if err := s.Delete(context.Background(), "C"+id); err != nil {
				return false
			}
			_, ok := s.Get("C" + id)
			return !ok
		},
		gen.AlphaString(),
	))

	properties.Property("applying a patch twice equals applying it once", prop.ForAll(
		func(name string, hours int, status int) bool {
			s, _ := newCourses(t, excel())
			st := statuses[status]
			patch := domain.CoursePatch{Name: &name, WorkloadHours: &hours, Status: &st}
			once, _ := s.Update(context.Background(), "C1", patch)
			twice, _ := s.Update(context.Background(), "C1", patch)
			return reflect.DeepEqual(once, twice)
		},
		gen.AlphaString(), gen.IntRange(0, 200), gen.IntRange(0, len(statuses)-1),
	))

	properties.TestingRun(t)
}
