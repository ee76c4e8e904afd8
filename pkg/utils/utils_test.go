package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateStructCustomTags(t *testing.T) {
	type contact struct {
		CI       string `validate:"required,ci"`
		Telefono string `validate:"omitempty,phone"`
	}

	tests := []struct {
		name    string
		in      contact
		wantErr bool
	}{
		{"plain ci", contact{CI: "1234567"}, false},
		{"ci with complement", contact{CI: "1234567-1B"}, false},
		{"ci too short", contact{CI: "123"}, true},
		{"ci with letters", contact{CI: "12a4567"}, true},
		{"formatted phone", contact{CI: "1234567", Telefono: "+591 (7) 123-4567"}, false},
		{"phone too short", contact{CI: "1234567", Telefono: "123"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.in)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSanitizers(t *testing.T) {
	assert.Equal(t, "ana@example.org", SanitizeEmail("  <b>Ana@Example.org</b> "))
	assert.Equal(t, "1234567-1B", SanitizeCI(" 1234567-1B; "))
	assert.Equal(t, "+591 7123-4567", SanitizePhone("+591 7123-4567<script>"))
	assert.Equal(t, "sin stock\nvolver luego", SanitizeText(" <i>sin stock</i>\nvolver luego\x00 "))
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("Segura123"))
	assert.Error(t, ValidatePassword("corta1A"))
	assert.Error(t, ValidatePassword("sinmayusculas1"))
	assert.Error(t, ValidatePassword("SinNumeros"))
}
