package logger

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestPlainFormatter(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	cases := []struct {
		name    string
		data    logrus.Fields
		message string
		want    string
	}{
		{
			name:    "with component and fields",
			data:    logrus.Fields{"component": "console", "endpoint": "ws://h/siebog/console", "code": 1006},
			message: "WebSocket for console connection closed.",
			want:    "[2026-01-02T03:04:05Z] [INFO] [console] WebSocket for console connection closed. code=1006 endpoint=ws://h/siebog/console\n",
		},
		{
			name:    "plain",
			data:    logrus.Fields{},
			message: "hello",
			want:    "[2026-01-02T03:04:05Z] [INFO] hello\n",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			entry := &logrus.Entry{
				Logger:  logrus.New(),
				Time:    ts,
				Level:   logrus.InfoLevel,
				Message: tc.message,
				Data:    tc.data,
			}
			out, err := (PlainFormatter{}).Format(entry)
			if err != nil {
				t.Fatalf("Format() error: %v", err)
			}
			if string(out) != tc.want {
				t.Fatalf("unexpected format:\nwant: %q\ngot:  %q", tc.want, string(out))
			}
		})
	}
}

func TestSetupFile(t *testing.T) {
	orig := logrus.StandardLogger().Out
	t.Cleanup(func() { logrus.SetOutput(orig) })

	path := filepath.Join(t.TempDir(), "nested", "console.log")
	closer, resolved, err := SetupFile(path)
	if err != nil {
		t.Fatalf("SetupFile: %v", err)
	}
	if resolved != path {
		t.Errorf("resolved = %q, want %q", resolved, path)
	}

	Named("test").Info("written to file")
	closer.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(data) == 0 {
		t.Error("expected log output in file")
	}
}
