package models

import (
	"testing"

	"github.com/stretchr/testify/assert"

	dErrors "medgate/pkg/domain-errors"
)

func TestInputValidate(t *testing.T) {
	tests := []struct {
		name    string
		in      Input
		wantErr bool
	}{
		{"complete", Input{Name: "Jane Doe", Contact: "555-0102", Diagnosis: "Hypertension"}, false},
		{"missing name", Input{Contact: "555-0102", Diagnosis: "Flu"}, true},
		{"missing contact", Input{Name: "Jane", Diagnosis: "Flu"}, true},
		{"missing diagnosis", Input{Name: "Jane", Contact: "555-0102"}, true},
		{"short contact", Input{Name: "Jane", Contact: "123", Diagnosis: "Flu"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		})
	}
}

func TestInputNormalize(t *testing.T) {
	in := Input{Name: "  Jane Doe ", Contact: "\t555-0102\n", Diagnosis: " Flu"}
	in.Normalize()
	assert.Equal(t, Input{Name: "Jane Doe", Contact: "555-0102", Diagnosis: "Flu"}, in)

	blank := Input{Name: "   ", Contact: "555-0102", Diagnosis: "Flu"}
	blank.Normalize()
	assert.Error(t, blank.Validate())
}

func TestFilterMatches(t *testing.T) {
	p := &Patient{ID: 12, Diagnosis: "Hypertension", MaskedContact: "XXX-XXX-0102"}

	assert.True(t, Filter{}.Matches(p))
	assert.True(t, Filter{Diagnosis: "Hypertension"}.Matches(p))
	assert.False(t, Filter{Diagnosis: "hypertension"}.Matches(p))
	assert.True(t, Filter{Search: "12"}.Matches(p))
	assert.True(t, Filter{Search: "xxx-xxx-01"}.Matches(p))
	assert.False(t, Filter{Search: "9999"}.Matches(p))
	assert.False(t, Filter{Diagnosis: "Flu", Search: "12"}.Matches(p))
}
