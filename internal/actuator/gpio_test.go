package actuator

import (
	"os"
	"path/filepath"
	"testing"
)

// fakeSysfs points gpioBasePath at a temp directory with the pin
// directory pre-created, as the kernel would after an export.
func fakeSysfs(t *testing.T, pin string) string {
	t.Helper()

	base := t.TempDir()
	if err := os.Mkdir(filepath.Join(base, "gpio"+pin), 0o755); err != nil {
		t.Fatalf("creating pin dir: %v", err)
	}

	old := gpioBasePath
	gpioBasePath = base
	t.Cleanup(func() { gpioBasePath = old })

	return base
}

func readSysfsFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return string(data)
}

func TestGPIODriverSetup(t *testing.T) {
	base := fakeSysfs(t, "17")
	d := NewGPIODriver()

	if err := d.Setup(17); err != nil {
		t.Fatalf("Setup: %v", err)
	}

	if got := readSysfsFile(t, filepath.Join(base, "gpio17", "direction")); got != "out" {
		t.Errorf("direction = %q, want out", got)
	}
	if got := readSysfsFile(t, filepath.Join(base, "gpio17", "value")); got != "0" {
		t.Errorf("value = %q, want 0 (initialised low)", got)
	}
}

func TestGPIODriverWrite(t *testing.T) {
	base := fakeSysfs(t, "17")
	d := NewGPIODriver()

	if err := d.Write(17, true); err != nil {
		t.Fatalf("Write(true): %v", err)
	}
	if got := readSysfsFile(t, filepath.Join(base, "gpio17", "value")); got != "1" {
		t.Errorf("value = %q, want 1", got)
	}

	if err := d.Write(17, false); err != nil {
		t.Fatalf("Write(false): %v", err)
	}
	if got := readSysfsFile(t, filepath.Join(base, "gpio17", "value")); got != "0" {
		t.Errorf("value = %q, want 0", got)
	}
}

func TestGPIODriverRelease(t *testing.T) {
	base := fakeSysfs(t, "17")
	d := NewGPIODriver()

	if err := d.Release(17); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if got := readSysfsFile(t, filepath.Join(base, "unexport")); got != "17" {
		t.Errorf("unexport = %q, want 17", got)
	}
}

func TestGPIODriverReleaseUnexportedPin(t *testing.T) {
	base := t.TempDir()
	old := gpioBasePath
	gpioBasePath = base
	t.Cleanup(func() { gpioBasePath = old })

	d := NewGPIODriver()
	if err := d.Release(99); err != nil {
		t.Fatalf("Release of never-exported pin should be a no-op: %v", err)
	}
	if _, err := os.Stat(filepath.Join(base, "unexport")); !os.IsNotExist(err) {
		t.Error("unexport written for a pin that was never exported")
	}
}
