package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signupForm struct {
	Email           string `form:"email" validate:"required,valid_email"`
	Password        string `form:"password" validate:"required,min=6"`
	ConfirmPassword string `form:"confirmPassword" validate:"required,eqfield=Password"`
}

func TestIsEmail(t *testing.T) {
	assert.True(t, IsEmail("ada@example.com"))
	assert.True(t, IsEmail("ADA.L+jobs@Mail.Example.ORG"))
	assert.False(t, IsEmail("ada@example"))
	assert.False(t, IsEmail("ada example.com"))
	assert.False(t, IsEmail("@example.com"))
}

func TestFields(t *testing.T) {
	v := New()

	t.Run("Should key messages by form field name", func(t *testing.T) {
		err := v.Struct(signupForm{Email: "nope", Password: "abc", ConfirmPassword: "abd"})
		require.Error(t, err)

		fe := Fields(err)
		assert.Equal(t, "Please enter a valid email address", fe["email"])
		assert.Equal(t, "Must be at least 6 characters", fe["password"])
		assert.Equal(t, "Passwords do not match", fe["confirmPassword"])
	})

	t.Run("Should report required fields with their label", func(t *testing.T) {
		fe := Fields(v.Struct(signupForm{}))
		assert.Equal(t, "Email is required", fe["email"])
	})

	t.Run("Should pass through FieldErrors and wrap unknown errors", func(t *testing.T) {
		fe := Fields(FieldErrors{"salaryMin": "too big"})
		assert.Equal(t, "too big", fe["salaryMin"])

		fe = Fields(errors.New("boom"))
		assert.Equal(t, "boom", fe["_form"])
	})

	t.Run("Should be empty for nil", func(t *testing.T) {
		assert.False(t, Fields(nil).Any())
	})
}

func TestRegisterEnum(t *testing.T) {
	v := New()
	RegisterEnum(v, "color", func(s string) bool { return s == "red" })

	type form struct {
		Color string `form:"color" validate:"color"`
	}
	assert.NoError(t, v.Struct(form{Color: "red"}))
	assert.NoError(t, v.Struct(form{}))
	assert.Error(t, v.Struct(form{Color: "blue"}))
}
