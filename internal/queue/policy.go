package queue

// Operation names an action checked by Authorize.
type Operation string

const (
	OpOpen      Operation = "open"
	OpClose     Operation = "close"
	OpStatus    Operation = "status"
	OpJoin      Operation = "join"
	OpLeave     Operation = "leave"
	OpRemove    Operation = "remove"
	OpValidate  Operation = "validate"
	OpPosition  Operation = "position"
	OpTurnToken Operation = "turn-token"
)

// Authorize is the single access policy for every queue operation.
//
// Staff operations need an admin or an employee assigned to venueID. Status is also open to plain
// users; whether a closed queue may be shown to them is decided after the record is loaded.
// Self-service operations only need an authenticated caller.
func Authorize(op Operation, caller Caller, venueID string) error {
	switch op {
	case OpOpen, OpClose, OpRemove, OpValidate:
		if isStaffFor(caller, venueID) {
			return nil
		}
		return ErrForbidden
	case OpStatus:
		switch caller.Role {
		case RoleAdmin, RoleUser:
			return nil
		case RoleEmployee:
			if caller.VenueID == venueID {
				return nil
			}
		}
		return ErrForbidden
	case OpJoin, OpLeave, OpPosition, OpTurnToken:
		if caller.UserID != "" && caller.Role.Valid() {
			return nil
		}
		return ErrForbidden
	}
	return ErrForbidden
}

func isStaffFor(caller Caller, venueID string) bool {
	switch caller.Role {
	case RoleAdmin:
		return true
	case RoleEmployee:
		return venueID != "" && caller.VenueID == venueID
	}
	return false
}
