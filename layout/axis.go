package layout

import (
	"github.com/wzqhbustb/jagged/storage/errors"
)

// MaybePosAxis converts a negative axis to a non-negative one. It returns
// false when c branches into different depths and a negative axis can only
// be resolved inside each branch.
func MaybePosAxis(c Content, axis int) (int, bool, error) {
	if axis >= 0 {
		return axis, true, nil
	}
	branching, depth := c.BranchDepth()
	if branching {
		return 0, false, nil
	}
	pos := depth + axis
	if pos < 0 {
		return 0, false, errors.AxisOutOfRange("normalize_axis", axis, depth)
	}
	return pos, true, nil
}

// NormalizeAxis resolves axis against c, which must not branch when axis is
// negative, and checks it against the depth of c.
func NormalizeAxis(c Content, axis int) (int, error) {
	pos, ok, err := MaybePosAxis(c, axis)
	if err != nil {
		return 0, err
	}
	_, maxDepth := c.MinMaxDepth()
	if !ok {
		return 0, errors.New(errors.ErrAxis).
			Op("normalize_axis").
			Context("axis", axis).
			Message("negative axis %d is ambiguous for an array whose records or unions have different depths", axis).
			Build()
	}
	if pos >= maxDepth {
		return 0, errors.AxisOutOfRange("normalize_axis", axis, maxDepth)
	}
	return pos, nil
}
