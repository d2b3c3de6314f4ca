package services

import "eduadmin_go/models"

// Capacity policy per course mode. nil means unlimited.
//
//	one_to_one:  default 1, max 1
//	one_to_two:  default 2, max 4
//	small_class: unlimited
func CapacityDefault(courseMode string) *int {
	switch courseMode {
	case models.ModeOneToOne:
		one := 1
		return &one
	case models.ModeOneToTwo:
		two := 2
		return &two
	}
	return nil
}

func CapacityMax(courseMode string) *int {
	switch courseMode {
	case models.ModeOneToOne:
		one := 1
		return &one
	case models.ModeOneToTwo:
		four := 4
		return &four
	}
	return nil
}

// EffectiveCapacity resolves the cap for a class group: the configured
// capacity (clamped to the mode's max) or the mode default.
func EffectiveCapacity(cg *models.ClassGroup) *int {
	max := CapacityMax(cg.CourseMode)
	if max == nil {
		return nil // small_class
	}
	cap := CapacityDefault(cg.CourseMode)
	if cg.Capacity != nil {
		c := *cg.Capacity
		if c > *max {
			c = *max
		}
		cap = &c
	}
	return cap
}

// CapacityAllows reports whether adding n students keeps the group within
// its effective capacity, given the current active-membership count.
func CapacityAllows(cg *models.ClassGroup, current, adding int) bool {
	cap := EffectiveCapacity(cg)
	if cap == nil {
		return true
	}
	return current+adding <= *cap
}
