package errors

import "fmt"

// IndexOutOfRange reports a scalar index outside [-length, length).
func IndexOutOfRange(op string, index, length int) error {
	return New(ErrIndex).
		Op(op).
		Context("index", index).
		Context("length", length).
		Message("index %d is out of bounds for length %d", index, length).
		Build()
}

// AdvancedIndexOutOfRange reports an entry of an integer-array or jagged
// selector that does not fit the list it selects from.
func AdvancedIndexOutOfRange(op string, position int, index int64, length int64) error {
	return New(ErrIndex).
		Op(op).
		Context("position", position).
		Context("index", index).
		Context("length", length).
		Message("index %d at position %d is out of bounds for length %d", index, position, length).
		Build()
}

// AxisOutOfRange reports an axis argument deeper than the array.
func AxisOutOfRange(op string, axis, depth int) error {
	return New(ErrAxis).
		Op(op).
		Context("axis", axis).
		Context("depth", depth).
		Message("axis=%d exceeds the depth of this array (%d)", axis, depth).
		Build()
}

// FormMismatch reports a structural validation failure.
func FormMismatch(op string, node string, reason string) error {
	return New(ErrFormMismatch).
		Op(op).
		Path(node).
		Context("message", reason).
		Build()
}

// FormMismatchf is FormMismatch with a formatted reason.
func FormMismatchf(op string, node string, format string, args ...interface{}) error {
	return FormMismatch(op, node, fmt.Sprintf(format, args...))
}

// BroadcastMismatch reports incompatible lengths during broadcasting.
func BroadcastMismatch(op string, depth int, lengths ...int) error {
	return New(ErrBroadcast).
		Op(op).
		Context("depth", depth).
		Context("lengths", lengths).
		Message("cannot broadcast lengths %v at depth %d", lengths, depth).
		Build()
}

// FieldNotFound reports a missing record field.
func FieldNotFound(op string, field string, available []string) error {
	return New(ErrFieldNotFound).
		Op(op).
		Context("field", field).
		Context("available_fields", available).
		Message("no field %q in record", field).
		Build()
}

// TypeMismatch reports an operation applied to a layout it is not defined for.
func TypeMismatch(op string, expected, actual string) error {
	return New(ErrType).
		Op(op).
		Context("expected", expected).
		Context("actual", actual).
		Build()
}

// Typef creates an ErrType error with a formatted message.
func Typef(op string, format string, args ...interface{}) error {
	return New(ErrType).Op(op).Message(format, args...).Build()
}
