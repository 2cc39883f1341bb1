package plugin

import (
	"context"
	"testing"
)

type stubPlugin struct {
	BaseHooks
	name string
}

func (s *stubPlugin) Metadata() Metadata {
	return Metadata{Name: s.name, Version: "v0.1.0", Description: "stub"}
}

func TestRegistryOrderAndLookup(t *testing.T) {
	r := NewRegistry()
	a := &stubPlugin{name: "alpha"}
	b := &stubPlugin{name: "beta"}

	if err := r.Register(a); err != nil {
		t.Fatalf("register alpha: %v", err)
	}
	if err := r.Register(b); err != nil {
		t.Fatalf("register beta: %v", err)
	}
	if err := r.Register(&stubPlugin{name: "alpha"}); err == nil {
		t.Fatalf("duplicate registration should fail")
	}

	list := r.List()
	if len(list) != 2 || list[0] != a || list[1] != b {
		t.Fatalf("registration order not preserved: %v", list)
	}

	got, err := r.Get("beta")
	if err != nil || got != b {
		t.Fatalf("Get(beta) = %v, %v", got, err)
	}
	if !r.Has("alpha") || r.Has("gamma") {
		t.Fatalf("Has results wrong")
	}
}

func TestRegistryRejectsInvalid(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(nil); err == nil {
		t.Fatalf("nil plugin should fail")
	}
	if err := r.Register(&stubPlugin{name: ""}); err == nil {
		t.Fatalf("empty name should fail")
	}
}

func TestRegistryUnregister(t *testing.T) {
	r := NewRegistry()
	p := &stubPlugin{name: "alpha"}
	if err := r.Register(p); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Unregister("alpha"); err != nil {
		t.Fatalf("unregister: %v", err)
	}
	if r.Has("alpha") || len(r.List()) != 0 {
		t.Fatalf("plugin not removed")
	}
	if err := r.Unregister("alpha"); err == nil {
		t.Fatalf("second unregister should fail")
	}
}

func TestBaseHooksPassThrough(t *testing.T) {
	p := &stubPlugin{name: "alpha"}
	pc := NewContext(context.Background(), nil, nil, "docs", "site", "build-1", nil)

	if err := p.OnConfig(pc); err != nil {
		t.Fatalf("OnConfig: %v", err)
	}
	html, err := p.OnPageContent(pc, &Page{SrcPath: "index.md", HTML: "<p>hi</p>"})
	if err != nil || html != "<p>hi</p>" {
		t.Fatalf("OnPageContent = %q, %v", html, err)
	}
}

func TestContextData(t *testing.T) {
	pc := NewContext(context.Background(), nil, nil, "docs", "site", "build-1", nil)
	pc.SetValue("db_url", "/wheels_assets")
	pc.SetValue("staged", true)

	if pc.GetString("db_url") != "/wheels_assets" {
		t.Fatalf("GetString failed")
	}
	if !pc.GetBool("staged") {
		t.Fatalf("GetBool failed")
	}
	if pc.GetString("missing") != "" || pc.GetBool("missing") {
		t.Fatalf("missing keys should return zero values")
	}
}
