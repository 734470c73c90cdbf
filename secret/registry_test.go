package secret

import (
	"errors"
	"reflect"
	"testing"
)

func TestRegistry_RegisterAndCreate(t *testing.T) {
	reg := NewRegistry()

	if err := reg.Register("stub", func(cfg map[string]any) (Provider, error) {
		return &stubProvider{name: "stub"}, nil
	}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	p, err := reg.Create("stub", nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if p.Name() != "stub" {
		t.Fatalf("unexpected provider: %#v", p)
	}
}

func TestRegistry_RegisterRejects(t *testing.T) {
	reg := NewRegistry()
	factory := func(map[string]any) (Provider, error) { return &stubProvider{name: "stub"}, nil }

	if err := reg.Register("stub", factory); err != nil {
		t.Fatal(err)
	}
	if err := reg.Register("stub", factory); err == nil {
		t.Error("expected duplicate registration error")
	}
	if err := reg.Register(" ", factory); err == nil {
		t.Error("expected blank name error")
	}
	if err := reg.Register("nil", nil); err == nil {
		t.Error("expected nil factory error")
	}
}

func TestRegistry_CreateUnknown(t *testing.T) {
	if _, err := NewRegistry().Create("vault", nil); !errors.Is(err, ErrProviderNotFound) {
		t.Fatalf("error = %v, want ErrProviderNotFound", err)
	}
}

func TestDefaultRegistry(t *testing.T) {
	if got := DefaultRegistry.List(); !reflect.DeepEqual(got, []string{"env", "file"}) {
		t.Fatalf("List() = %v", got)
	}

	p, err := DefaultRegistry.Create("file", map[string]any{"dir": "/run/secrets"})
	if err != nil {
		t.Fatal(err)
	}
	if fp, ok := p.(FileProvider); !ok || fp.Dir != "/run/secrets" {
		t.Errorf("provider = %#v", p)
	}
}
