package dispatch

import (
	"github.com/rotisserie/eris"
)

// Merged groups the results of one batch by task kind, keeping submission
// order within each kind.
type Merged map[Kind][]Result

// Merge groups results by kind.
func Merge(results []Result) Merged {
	m := make(Merged)
	for _, r := range results {
		m[r.Kind] = append(m[r.Kind], r)
	}
	return m
}

// Failures returns every unsuccessful result. Order across kinds is
// unspecified.
func (m Merged) Failures() []Result {
	var out []Result
	for _, rs := range m {
		for _, r := range rs {
			if !r.Success {
				out = append(out, r)
			}
		}
	}
	return out
}

// FirstFailure returns an error for the first unsuccessful result, or nil.
func FirstFailure(results []Result) error {
	for _, r := range results {
		if r.Success {
			continue
		}
		if r.Err == nil {
			return eris.Errorf("dispatch: task %s failed", r.TaskID)
		}
		return eris.Wrapf(r.Err, "dispatch: task %s failed", r.TaskID)
	}
	return nil
}

// Values extracts the typed values of one kind.
func Values[T any](m Merged, kind Kind) ([]T, error) {
	rs := m[kind]
	out := make([]T, 0, len(rs))
	for _, r := range rs {
		if !r.Success {
			return nil, eris.Errorf("dispatch: task %s did not succeed", r.TaskID)
		}
		v, ok := r.Value.(T)
		if !ok {
			return nil, eris.Errorf("dispatch: task %s returned %T", r.TaskID, r.Value)
		}
		out = append(out, v)
	}
	return out, nil
}

// Single extracts the one value of a kind expected exactly once per batch.
func Single[T any](m Merged, kind Kind) (T, error) {
	var zero T
	vs, err := Values[T](m, kind)
	if err != nil {
		return zero, err
	}
	if len(vs) != 1 {
		return zero, eris.Errorf("dispatch: expected one %s result, got %d", kind, len(vs))
	}
	return vs[0], nil
}
