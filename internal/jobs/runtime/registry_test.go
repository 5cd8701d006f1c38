package runtime

import "testing"

type stubHandler struct {
	jobType string
}

func (h *stubHandler) Type() string          { return h.jobType }
func (h *stubHandler) Run(jc *Context) error { return nil }

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	h := &stubHandler{jobType: "orders_sync"}
	if err := r.Register(h); err != nil {
		t.Fatalf("Register: %v", err)
	}

	got, ok := r.Get("orders_sync")
	if !ok || got != h {
		t.Fatal("registered handler not returned")
	}
	if _, ok := r.Get("unknown"); ok {
		t.Fatal("unknown job type must not resolve")
	}
}

func TestRegistryRejectsDuplicatesAndEmpty(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(nil); err == nil {
		t.Fatal("nil handler must be rejected")
	}
	if err := r.Register(&stubHandler{}); err == nil {
		t.Fatal("empty type must be rejected")
	}
	if err := r.Register(&stubHandler{jobType: "orders_sync"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(&stubHandler{jobType: "orders_sync"}); err == nil {
		t.Fatal("duplicate registration must be rejected")
	}
}

func TestContextPayloadAccessors(t *testing.T) {
	c := &Context{payload: map[string]any{
		"official_id": "4bc38d02-73a0-4da3-a9ae-09f321c52b3a",
		"period":      "2024-Q1",
		"year":        float64(2024),
		"force":       true,
		"blank":       "  ",
	}}

	if id, ok := c.PayloadUUID("official_id"); !ok || id.String() != "4bc38d02-73a0-4da3-a9ae-09f321c52b3a" {
		t.Fatalf("PayloadUUID: %v %v", id, ok)
	}
	if s, ok := c.PayloadString("period"); !ok || s != "2024-Q1" {
		t.Fatalf("PayloadString: %q %v", s, ok)
	}
	if _, ok := c.PayloadString("blank"); ok {
		t.Fatal("blank string must report absent")
	}
	if n, ok := c.PayloadInt("year"); !ok || n != 2024 {
		t.Fatalf("PayloadInt: %d %v", n, ok)
	}
	if !c.PayloadBool("force") {
		t.Fatal("PayloadBool: expected true")
	}
	if c.PayloadBool("missing") {
		t.Fatal("missing bool must be false")
	}
	if _, ok := c.PayloadUUID("period"); ok {
		t.Fatal("non-uuid must not parse")
	}
}
