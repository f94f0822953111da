package capability

import (
	"context"
	"errors"
	"testing"
)

func TestRenderPlaceholders(t *testing.T) {
	subject := map[string]interface{}{
		"name":  "Maria Souza",
		"score": 42,
	}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"single placeholder", "Ligar para {{name}}", "Ligar para Maria Souza"},
		{"repeated placeholder", "{{name}} / {{name}}", "Maria Souza / Maria Souza"},
		{"numeric value", "score: {{score}}", "score: 42"},
		{"unknown placeholder left intact", "hi {{budget}}", "hi {{budget}}"},
		{"no placeholders", "plain text", "plain text"},
		{"empty string", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RenderPlaceholders(tt.in, subject); got != tt.want {
				t.Errorf("RenderPlaceholders(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"transient capability error", Transient("send_email", errors.New("503")), true},
		{"permanent capability error", Permanent("send_email", errors.New("bad payload")), false},
		{"wrapped transient", errors.Join(errors.New("outer"), Transient("op", errors.New("inner"))), true},
		{"deadline exceeded counts as transient", context.DeadlineExceeded, true},
		{"plain error is not transient", errors.New("whatever"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestCapabilityErrorMessageAndUnwrap(t *testing.T) {
	inner := errors.New("connection refused")
	err := Transient("send_whatsapp", inner)

	if !errors.Is(err, inner) {
		t.Error("Unwrap should expose the inner error")
	}
	want := "capability send_whatsapp failed (transient): connection refused"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
