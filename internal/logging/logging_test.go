package logging

import (
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		name  string
		level string
		want  logrus.Level
	}{
		{name: "debug", level: "debug", want: logrus.DebugLevel},
		{name: "info", level: "info", want: logrus.InfoLevel},
		{name: "warn", level: "warn", want: logrus.WarnLevel},
		{name: "unknown falls back to info", level: "chatty", want: logrus.InfoLevel},
		{name: "empty falls back to info", level: "", want: logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := New(tt.level)
			if log.GetLevel() != tt.want {
				t.Errorf("New(%q) level = %v, want %v", tt.level, log.GetLevel(), tt.want)
			}
		})
	}
}

func TestComponent(t *testing.T) {
	log := New("info")
	entry := Component(log, "uploader")

	if entry.Data["component"] != "uploader" {
		t.Errorf("component field = %v, want uploader", entry.Data["component"])
	}
}
