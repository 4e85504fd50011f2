package logging

import "testing"

func TestNopLoggerTracksDebugFlag(t *testing.T) {
	l := NewNop()
	if l.DebugEnabled() {
		t.Fatal("expected debug disabled by default")
	}
	l.SetDebug(true)
	if !l.DebugEnabled() {
		t.Fatal("expected debug enabled after SetDebug(true)")
	}
	l.Debugf("noop %d", 1)
	l.Infof("noop")
	l.Warnf("noop")
	l.Errorf("noop")
}

func TestNewDefaultsToInfoLevel(t *testing.T) {
	l := New()
	if l.DebugEnabled() {
		t.Fatal("expected debug disabled by default for the logrus-backed logger")
	}
	l.SetDebug(true)
	if !l.DebugEnabled() {
		t.Fatal("expected debug enabled after SetDebug(true)")
	}
}
