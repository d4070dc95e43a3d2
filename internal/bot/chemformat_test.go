package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubscriptFormulas(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"water", "H2O", "H₂O"},
		{"sulfuric acid", "H2SO4", "H₂SO₄"},
		{"carbon dioxide", "CO2", "CO₂"},
		{"parenthesized group", "Ca(OH)2", "Ca(OH)₂"},
		{"glucose", "C6H12O6", "C₆H₁₂O₆"},
		{"coefficient stays", "2H2O", "2H₂O"},
		{"inside arabic text", "ما ناتج تحلل H2O2؟", "ما ناتج تحلل H₂O₂؟"},
		{"plain number untouched", "السؤال 5 من 10", "السؤال 5 من 10"},
		{"number after space untouched", "عام 1869", "عام 1869"},
		{"no formulas", "الجدول الدوري", "الجدول الدوري"},
		{"empty", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, subscriptFormulas(tc.in))
		})
	}
}
