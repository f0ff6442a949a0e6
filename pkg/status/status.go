package status

// Status is the categorical health tag of a record or a run.
type Status string

const (
	OK   Status = "OK"
	WARN Status = "WARN"
	FAIL Status = "FAIL"
)

// RandomSource yields uniform draws in [0, 1).
// *math/rand/v2.Rand satisfies it.
type RandomSource interface {
	Float64() float64
}

// Valid reports whether s is one of the known record statuses.
func (s Status) Valid() bool {
	switch s {
	case OK, WARN, FAIL:
		return true
	default:
		return false
	}
}

// IsRunLevel reports whether s may be assigned to a run as a whole.
func (s Status) IsRunLevel() bool {
	return s == OK || s == WARN
}

func (s Status) String() string {
	return string(s)
}

// Classify draws one value r from src and maps it onto a record status:
// OK if r < okRatio, WARN if r < okRatio+warnRatio, FAIL otherwise.
// When okRatio+warnRatio exceeds 1, FAIL is unreachable.
func Classify(src RandomSource, okRatio, warnRatio float64) Status {
	r := src.Float64()

	if r < okRatio {
		return OK
	}

	if r < okRatio+warnRatio {
		return WARN
	}

	return FAIL
}

// ForRun derives the aggregate status of a run from its record counts.
// The WARN count never participates.
func ForRun(okRecords, failRecords int) Status {
	if okRecords >= failRecords {
		return OK
	}

	return WARN
}

// Tally counts record statuses.
type Tally struct {
	OK   int
	WARN int
	FAIL int
}

// Add counts one record with status s. Unknown statuses are ignored.
func (t *Tally) Add(s Status) {
	switch s {
	case OK:
		t.OK++
	case WARN:
		t.WARN++
	case FAIL:
		t.FAIL++
	}
}

// Total returns the number of counted records.
func (t Tally) Total() int {
	return t.OK + t.WARN + t.FAIL
}

// Status returns the aggregate run status for the tally.
func (t Tally) Status() Status {
	return ForRun(t.OK, t.FAIL)
}
