package util_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dev-mohitbeniwal/boundary/util"
)

func TestValidateAccountID(t *testing.T) {
	v := util.NewValidationUtil()

	assert.NoError(t, v.ValidateAccountID("123456789012"))
	assert.Error(t, v.ValidateAccountID("12345678901"))
	assert.Error(t, v.ValidateAccountID("1234567890123"))
	assert.Error(t, v.ValidateAccountID("12345678901a"))
	assert.Error(t, v.ValidateAccountID(""))
}

func TestValidateARN(t *testing.T) {
	v := util.NewValidationUtil()

	assert.NoError(t, v.ValidateARN("arn:aws:sso:::permissionSet/ssoins-1/ps-1"))
	assert.Error(t, v.ValidateARN("arn:gcp:sso:::x"))
	assert.Error(t, v.ValidateARN("arn:aws:sso"))
	assert.Error(t, v.ValidateARN(""))
}

func TestValidateDuration(t *testing.T) {
	v := util.NewValidationUtil()

	assert.NoError(t, v.ValidateDuration(0.5))
	assert.NoError(t, v.ValidateDuration(720))
	assert.Error(t, v.ValidateDuration(0))
	assert.Error(t, v.ValidateDuration(-1))
	assert.Error(t, v.ValidateDuration(721))
}
