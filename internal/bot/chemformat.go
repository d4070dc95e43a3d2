package bot

import "strings"

// Цифры нижнего индекса Unicode для химических формул.
var subscriptDigits = map[rune]rune{
	'0': '₀', '1': '₁', '2': '₂', '3': '₃', '4': '₄',
	'5': '₅', '6': '₆', '7': '₇', '8': '₈', '9': '₉',
}

// subscriptFormulas переводит цифры химических формул в нижний индекс:
// H2O становится H₂O, Ca(OH)2 становится Ca(OH)₂. Цифрой формулы
// считается цифра сразу после латинской буквы или закрывающей скобки;
// числа в обычном тексте и коэффициенты перед формулой не трогаются.
func subscriptFormulas(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))

	inFormula := false
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r == ')':
			inFormula = true
			sb.WriteRune(r)
		case r >= '0' && r <= '9' && inFormula:
			sb.WriteRune(subscriptDigits[r])
		default:
			inFormula = false
			sb.WriteRune(r)
		}
	}

	return sb.String()
}
