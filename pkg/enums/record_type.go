package enums

import "fmt"

// RecordType identifies a sacramental record table in a church database.
type RecordType string

const (
	RecordTypeBaptism  RecordType = "baptism"
	RecordTypeMarriage RecordType = "marriage"
	RecordTypeFuneral  RecordType = "funeral"
)

var validRecordTypes = []RecordType{
	RecordTypeBaptism,
	RecordTypeMarriage,
	RecordTypeFuneral,
}

// String implements fmt.Stringer.
func (r RecordType) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RecordType.
func (r RecordType) IsValid() bool {
	for _, candidate := range validRecordTypes {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRecordType converts raw input into a RecordType.
func ParseRecordType(value string) (RecordType, error) {
	for _, candidate := range validRecordTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid record type %q", value)
}
