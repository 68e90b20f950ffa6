package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveEdit(t *testing.T) {
	const creator int32 = 10

	tests := []struct {
		name       string
		actor      Actor
		wantChange FlagChange
		wantErr    error
	}{
		{"owner usuario clears the mark", Actor{ID: creator, Rol: RolUsuario}, FlagClearOther, nil},
		{"owner supervisor keeps the mark", Actor{ID: creator, Rol: RolSupervisor}, FlagUnchanged, nil},
		{"other supervisor marks", Actor{ID: 20, Rol: RolSupervisor}, FlagMarkOther, nil},
		{"other usuario forbidden", Actor{ID: 30, Rol: RolUsuario}, FlagUnchanged, ErrEditNotAllowed},
		{"other admin forbidden", Actor{ID: 40, Rol: RolAdmin}, FlagUnchanged, ErrEditNotAllowed},
		{"owner admin clears the mark", Actor{ID: creator, Rol: RolAdmin}, FlagClearOther, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			change, err := ResolveEdit(tt.actor, creator)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.ErrorIs(t, err, ErrForbidden)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantChange, change)
		})
	}
}

func TestFlagChange_Apply(t *testing.T) {
	for _, current := range []bool{true, false} {
		assert.True(t, FlagMarkOther.Apply(current))
		assert.False(t, FlagClearOther.Apply(current))
		assert.Equal(t, current, FlagUnchanged.Apply(current))
	}
}

func TestAuthorizeEdit(t *testing.T) {
	op := &Operacion{ID: 1, IDUsuario: 10}

	require.NoError(t, AuthorizeEdit(op, Actor{ID: 20, Rol: RolSupervisor}))
	assert.True(t, op.ModificadoPorOtro)

	require.NoError(t, AuthorizeEdit(op, Actor{ID: 10, Rol: RolSupervisor}))
	assert.True(t, op.ModificadoPorOtro)

	require.NoError(t, AuthorizeEdit(op, Actor{ID: 10, Rol: RolUsuario}))
	assert.False(t, op.ModificadoPorOtro)

	op.ModificadoPorOtro = true
	assert.ErrorIs(t, AuthorizeEdit(op, Actor{ID: 30, Rol: RolUsuario}), ErrEditNotAllowed)
	assert.True(t, op.ModificadoPorOtro, "a rejected edit leaves the flag alone")
}
