package domain

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID  int32
	Rol Rol
}

// FlagChange is the effect an authorized edit has on Operacion.ModificadoPorOtro.
type FlagChange int

const (
	FlagUnchanged FlagChange = iota
	FlagMarkOther
	FlagClearOther
)

// Apply returns the flag value after the change.
func (f FlagChange) Apply(current bool) bool {
	switch f {
	case FlagMarkOther:
		return true
	case FlagClearOther:
		return false
	}
	return current
}

// ResolveEdit decides whether actor may edit an operation created by creatorID.
//
// The creator or any supervisor may edit. A supervisor editing someone else's operation
// marks it as modified by another user; the creator editing it clears the mark. A
// supervisor editing their own operation leaves the mark as it was.
func ResolveEdit(actor Actor, creatorID int32) (FlagChange, error) {
	isOwner := actor.ID == creatorID
	isSupervisor := actor.Rol == RolSupervisor

	switch {
	case !isOwner && !isSupervisor:
		return FlagUnchanged, ErrEditNotAllowed
	case isSupervisor && !isOwner:
		return FlagMarkOther, nil
	case isOwner && !isSupervisor:
		return FlagClearOther, nil
	}
	return FlagUnchanged, nil
}

// AuthorizeEdit runs ResolveEdit against op and applies the resulting flag change.
func AuthorizeEdit(op *Operacion, actor Actor) error {
	change, err := ResolveEdit(actor, op.IDUsuario)
	if err != nil {
		return err
	}
	op.ModificadoPorOtro = change.Apply(op.ModificadoPorOtro)
	return nil
}
