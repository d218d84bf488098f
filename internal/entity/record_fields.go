package entity

import "time"

// fieldAccess gives typed get/set access to one canonical field. The merge
// and diff logic works over canonical fields generically; these accessors
// are the explicit Go stand-in for reflective attribute access.
type fieldAccess struct {
	get func(*Record) any
	set func(*Record, any) bool
}

func stringAccess(p func(*Record) **string) fieldAccess {
	return fieldAccess{
		get: func(r *Record) any {
			if v := *p(r); v != nil {
				return *v
			}
			return nil
		},
		set: func(r *Record, v any) bool {
			if v == nil {
				*p(r) = nil
				return true
			}
			s, ok := v.(string)
			if !ok {
				return false
			}
			*p(r) = &s
			return true
		},
	}
}

func numberAccess(p func(*Record) **float64) fieldAccess {
	return fieldAccess{
		get: func(r *Record) any {
			if v := *p(r); v != nil {
				return *v
			}
			return nil
		},
		set: func(r *Record, v any) bool {
			if v == nil {
				*p(r) = nil
				return true
			}
			f, ok := v.(float64)
			if !ok {
				return false
			}
			*p(r) = &f
			return true
		},
	}
}

func boolAccess(p func(*Record) **bool) fieldAccess {
	return fieldAccess{
		get: func(r *Record) any {
			if v := *p(r); v != nil {
				return *v
			}
			return nil
		},
		set: func(r *Record, v any) bool {
			if v == nil {
				*p(r) = nil
				return true
			}
			b, ok := v.(bool)
			if !ok {
				return false
			}
			*p(r) = &b
			return true
		},
	}
}

func timeAccess(p func(*Record) **time.Time) fieldAccess {
	return fieldAccess{
		get: func(r *Record) any {
			if v := *p(r); v != nil {
				return *v
			}
			return nil
		},
		set: func(r *Record, v any) bool {
			if v == nil {
				*p(r) = nil
				return true
			}
			ts, ok := v.(time.Time)
			if !ok {
				return false
			}
			*p(r) = &ts
			return true
		},
	}
}

var recordFields = map[string]fieldAccess{
	"date_of_service":  timeAccess(func(r *Record) **time.Time { return &r.DateOfService }),
	"location":         stringAccess(func(r *Record) **string { return &r.Location }),
	"mrn":              stringAccess(func(r *Record) **string { return &r.MRN }),
	"first_name":       stringAccess(func(r *Record) **string { return &r.FirstName }),
	"last_name":        stringAccess(func(r *Record) **string { return &r.LastName }),
	"reason_for_visit": stringAccess(func(r *Record) **string { return &r.ReasonForVisit }),
	"points":           numberAccess(func(r *Record) **float64 { return &r.Points }),
	"percent":          numberAccess(func(r *Record) **float64 { return &r.Percent }),
	"category":         stringAccess(func(r *Record) **string { return &r.Category }),
	"pca_confirmed":    boolAccess(func(r *Record) **bool { return &r.PCaConfirmed }),
	"gleason_grade":    stringAccess(func(r *Record) **string { return &r.GleasonGrade }),
	"age_group":        stringAccess(func(r *Record) **string { return &r.AgeGroup }),
	"family_history":   stringAccess(func(r *Record) **string { return &r.FamilyHistory }),
	"race":             stringAccess(func(r *Record) **string { return &r.Race }),
	"genetic_mutation": stringAccess(func(r *Record) **string { return &r.GeneticMutation }),
}

// Field returns the current value of a canonical field, nil when the field
// is unset, and false when the name is not canonical.
func (r *Record) Field(name string) (any, bool) {
	access, ok := recordFields[name]
	if !ok {
		return nil, false
	}
	return access.get(r), true
}

// SetField assigns a canonical field from a coerced value (nil, string,
// float64, bool or time.Time). It reports false for unknown fields and for
// values of the wrong type, leaving the record untouched.
func (r *Record) SetField(name string, v any) bool {
	access, ok := recordFields[name]
	if !ok {
		return false
	}
	return access.set(r, v)
}
