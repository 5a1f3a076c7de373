package factory

import "testing"

type fakeSink struct {
	url string
}

type fakeConf struct {
	URL string `json:"url"`
}

func TestRegistryCreate(t *testing.T) {
	reg := NewRegistry[*fakeSink]()
	err := reg.Register("fake", func(conf map[string]any) (*fakeSink, error) {
		var c fakeConf
		if err := Decode(conf, &c); err != nil {
			return nil, err
		}
		return &fakeSink{url: c.URL}, nil
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	s, err := reg.Create(ModuleConfig{Type: "fake", Conf: map[string]any{"url": "http://localhost:8086"}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if s.url != "http://localhost:8086" {
		t.Fatalf("url = %q", s.url)
	}
}

func TestRegistryErrors(t *testing.T) {
	reg := NewRegistry[int]()
	if err := reg.Register("x", func(map[string]any) (int, error) { return 1, nil }); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := reg.Register("x", func(map[string]any) (int, error) { return 2, nil }); err == nil {
		t.Fatal("expected duplicate registration error")
	}
	if err := reg.Register("y", nil); err == nil {
		t.Fatal("expected nil factory error")
	}
	if _, err := reg.Create(ModuleConfig{Type: "missing"}); err == nil {
		t.Fatal("expected unknown type error")
	}
}

func TestDecodeTypeMismatch(t *testing.T) {
	var c fakeConf
	if err := Decode(map[string]any{"url": 42}, &c); err == nil {
		t.Fatal("expected decode error for type mismatch")
	}
}
