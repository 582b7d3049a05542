package config

import (
	"bytes"
	"strings"
	"testing"
)

func TestInitLogger(t *testing.T) {
	var buf bytes.Buffer
	l := (&Config{}).InitLogger("test", &buf)
	defer l.Close()

	l.Info("User ABC21 won prize-3")
	l.Warning("Error counting prizes")
	l.V(1).Info("nocodb trace")

	out := buf.String()
	for _, want := range []string{"INFO : ", "User ABC21 won prize-3", "WARN : ", "Error counting prizes"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in log output, got %q", want, out)
		}
	}
	if strings.Contains(out, "nocodb trace") {
		t.Errorf("Expected V(1) lines hidden without LOG_VERBOSE, got %q", out)
	}

	buf.Reset()
	v := (&Config{LogVerbose: true}).InitLogger("test", &buf)
	defer v.Close()
	v.V(1).Info("nocodb trace")
	if !strings.Contains(buf.String(), "nocodb trace") {
		t.Errorf("Expected V(1) lines with LOG_VERBOSE, got %q", buf.String())
	}
}
