package browser

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestXvfbSocket(t *testing.T) {
	cases := []struct {
		display string
		want    string
		wantErr bool
	}{
		{display: ":99", want: "/tmp/.X11-unix/X99"},
		{display: ":0.0", want: "/tmp/.X11-unix/X0"},
		{display: "99", wantErr: true},
		{display: ":abc", wantErr: true},
		{display: "", wantErr: true},
	}
	for _, c := range cases {
		got, err := xvfbSocket(c.display)
		if c.wantErr {
			if err == nil {
				t.Errorf("xvfbSocket(%q): expected error, got %q", c.display, got)
			}
			continue
		}
		if err != nil || got != c.want {
			t.Errorf("xvfbSocket(%q): got %q, %v, want %q", c.display, got, err, c.want)
		}
	}
}

func TestWaitForSocket_Appears(t *testing.T) {
	path := filepath.Join(t.TempDir(), "X42")
	go func() {
		time.Sleep(50 * time.Millisecond)
		os.WriteFile(path, nil, 0o600)
	}()

	if err := waitForSocket(path, make(chan struct{}), 2*time.Second); err != nil {
		t.Fatalf("wait: %v", err)
	}
}

func TestWaitForSocket_Exited(t *testing.T) {
	exited := make(chan struct{})
	close(exited)

	err := waitForSocket(filepath.Join(t.TempDir(), "X42"), exited, 2*time.Second)
	if err == nil {
		t.Fatal("expected error when the server exits first")
	}
}

func TestWaitForSocket_Timeout(t *testing.T) {
	start := time.Now()
	err := waitForSocket(filepath.Join(t.TempDir(), "X42"), make(chan struct{}), 100*time.Millisecond)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if d := time.Since(start); d > time.Second {
		t.Fatalf("timeout took %v", d)
	}
}
