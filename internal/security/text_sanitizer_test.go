package security

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTextSanitizer_Sanitize(t *testing.T) {
	sanitizer := NewTextSanitizer(0)

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"プレーンテキストはそのまま", "Rifa de diciembre", "Rifa de diciembre"},
		{"前後の空白を除去", "  Bingo familiar \n", "Bingo familiar"},
		{"scriptタグは内容ごと除去", `Pago<script>alert(1)</script> mensual`, "Pago mensual"},
		{"書式タグは除去しテキストを残す", "<b>Cuota</b> de <em>enero</em>", "Cuota de enero"},
		{"イベント属性付きタグも除去", `<img src=x onerror="alert(1)">Nota`, "Nota"},
		{"記号はエスケープせず保持", "Ahorro & préstamo 1 < 2", "Ahorro & préstamo 1 < 2"},
		{"空文字列", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizer.Sanitize(tt.input); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTextSanitizer_TruncatesByRunes(t *testing.T) {
	sanitizer := NewTextSanitizer(5)

	got := sanitizer.Sanitize("ñañañaña")
	if got != "ñañañ" {
		t.Errorf("Sanitize = %q, want %q", got, "ñañañ")
	}
}

func TestTextSanitizer_DefaultMaxRunes(t *testing.T) {
	sanitizer := NewTextSanitizer(0)

	got := sanitizer.Sanitize(strings.Repeat("á", DefaultMaxRunes+50))
	if n := utf8.RuneCountInString(got); n != DefaultMaxRunes {
		t.Errorf("rune count = %d, want %d", n, DefaultMaxRunes)
	}
}

func TestTextSanitizer_Idempotent(t *testing.T) {
	sanitizer := NewTextSanitizer(0)
	input := `<p>Actividad <a href="javascript:alert(1)">bazar</a> &amp; venta</p>`

	first := sanitizer.Sanitize(input)
	second := sanitizer.Sanitize(first)
	if first != second {
		t.Errorf("not idempotent: %q -> %q", first, second)
	}
}

func TestTextSanitizer_ImplementsInterface(t *testing.T) {
	var _ TextSanitizer = NewTextSanitizer(0)
}
