package domain

// BloodType is one of the eight ABO/Rh blood groups.
type BloodType string

// The eight ABO/Rh blood groups.
const (
	BloodAPos  BloodType = "A+"
	BloodANeg  BloodType = "A-"
	BloodBPos  BloodType = "B+"
	BloodBNeg  BloodType = "B-"
	BloodABPos BloodType = "AB+"
	BloodABNeg BloodType = "AB-"
	BloodOPos  BloodType = "O+"
	BloodONeg  BloodType = "O-"
)

// AllBloodTypes lists every valid blood group.
var AllBloodTypes = []BloodType{
	BloodAPos, BloodANeg,
	BloodBPos, BloodBNeg,
	BloodABPos, BloodABNeg,
	BloodOPos, BloodONeg,
}

// IsValid reports whether b is one of the eight recognised blood groups.
func (b BloodType) IsValid() bool {
	switch b {
	case BloodAPos, BloodANeg, BloodBPos, BloodBNeg,
		BloodABPos, BloodABNeg, BloodOPos, BloodONeg:
		return true
	}
	return false
}

// compatibleDonors maps a recipient blood group to the donor groups whose
// blood can be transfused to it (standard ABO/Rh compatibility, O- being the
// universal donor).
var compatibleDonors = map[BloodType][]BloodType{
	BloodAPos:  {BloodAPos, BloodANeg, BloodOPos, BloodONeg},
	BloodANeg:  {BloodANeg, BloodONeg},
	BloodBPos:  {BloodBPos, BloodBNeg, BloodOPos, BloodONeg},
	BloodBNeg:  {BloodBNeg, BloodONeg},
	BloodABPos: AllBloodTypes,
	BloodABNeg: {BloodABNeg, BloodANeg, BloodBNeg, BloodONeg},
	BloodOPos:  {BloodOPos, BloodONeg},
	BloodONeg:  {BloodONeg},
}

// CompatibleDonorTypes returns the donor blood groups that can give to a
// recipient of the given group. Unknown groups yield an empty slice.
func CompatibleDonorTypes(recipient BloodType) []BloodType {
	donors, ok := compatibleDonors[recipient]
	if !ok {
		return nil
	}
	out := make([]BloodType, len(donors))
	copy(out, donors)
	return out
}

// CanDonateTo reports whether blood of the donor group can be transfused to a
// recipient of the given group.
func CanDonateTo(donor, recipient BloodType) bool {
	for _, d := range compatibleDonors[recipient] {
		if d == donor {
			return true
		}
	}
	return false
}
