package settings

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/quasilyte/gdata/v2"
)

func openTestStore(t *testing.T) *gdata.Manager {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", "")

	store, err := gdata.Open(gdata.Config{
		AppName: fmt.Sprintf("vanroute_test_%d", time.Now().UnixNano()),
	})
	if err != nil {
		t.Skipf("Cannot create gdata manager for testing: %v", err)
	}
	return store
}

func TestDefaultPreferences(t *testing.T) {
	p := DefaultPreferences()
	if p.Speed != DefaultSpeed {
		t.Errorf("Speed: got %v, want %v", p.Speed, DefaultSpeed)
	}
	if p.NightMode {
		t.Error("NightMode: got true, want false")
	}
	if !p.WreckageEffects {
		t.Error("WreckageEffects: got false, want true")
	}
	if err := p.Validate(); err != nil {
		t.Errorf("Defaults should validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	for _, speed := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		p := DefaultPreferences()
		p.Speed = speed
		if err := p.Validate(); !errors.Is(err, ErrInvalidPreferences) {
			t.Errorf("speed %v: expected ErrInvalidPreferences, got %v", speed, err)
		}
	}
}

func TestManagerWithoutStorage(t *testing.T) {
	m := NewManager(nil)

	if got := m.Get(); got != DefaultPreferences() {
		t.Errorf("Expected defaults, got %+v", got)
	}

	p := Preferences{Speed: 0.5, NightMode: true}
	if err := m.Update(p); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if got := m.Get(); got != p {
		t.Errorf("Expected %+v in memory, got %+v", p, got)
	}

	if err := m.Update(Preferences{}); err == nil {
		t.Error("Expected error for zero speed")
	}
	if got := m.Get(); got != p {
		t.Errorf("A rejected update should not change preferences, got %+v", got)
	}
}

func TestManagerPersistence(t *testing.T) {
	store := openTestStore(t)

	m := NewManager(store)
	if got := m.Get(); got != DefaultPreferences() {
		t.Fatalf("Expected defaults from an empty store, got %+v", got)
	}

	saved := Preferences{Speed: 0.35, NightMode: true, WreckageEffects: false, DefaultLevel: "easy"}
	if err := m.Update(saved); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	reopened := NewManager(store)
	if got := reopened.Get(); got != saved {
		t.Errorf("Expected %+v after reload, got %+v", saved, got)
	}
}

func TestManagerRejectsCorruptData(t *testing.T) {
	store := openTestStore(t)
	if err := store.SaveObjectProp(preferencesObject, preferencesProperty, []byte("speed: [")); err != nil {
		t.Fatalf("Failed to seed store: %v", err)
	}

	m := NewManager(store)
	if got := m.Get(); got != DefaultPreferences() {
		t.Errorf("Expected defaults after corrupt data, got %+v", got)
	}
	if err := m.Load(); err == nil {
		t.Error("Expected Load to report the corrupt data")
	}
}
