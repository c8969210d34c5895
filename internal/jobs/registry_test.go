package jobs

import (
	"context"
	"testing"

	"gorm.io/datatypes"

	"github.com/handwerkml/pricing-backend/internal/types"
)

type stubHandler struct{ jobType string }

func (h *stubHandler) Type() string { return h.jobType }

func (h *stubHandler) Run(jc *Context) {}

func TestRegistryRejectsDuplicates(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(&stubHandler{jobType: "project_embed"}); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if err := registry.Register(&stubHandler{jobType: "project_embed"}); err == nil {
		t.Fatal("duplicate registration accepted")
	}
	if _, ok := registry.Get("project_embed"); !ok {
		t.Fatal("registered handler not found")
	}
	if _, ok := registry.Get("unknown"); ok {
		t.Fatal("Get returned a handler for an unknown type")
	}
}

func TestRegistryRejectsEmptyType(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(&stubHandler{}); err == nil {
		t.Fatal("empty job type accepted")
	}
	if err := registry.Register(nil); err == nil {
		t.Fatal("nil handler accepted")
	}
}

func TestContextPayloadAccessors(t *testing.T) {
	job := &types.JobRun{
		Payload: datatypes.JSON([]byte(`{"project_id":"11111111-1111-4111-8111-111111111111","generation":"minilm-384","count":3}`)),
	}
	jc := NewContext(context.Background(), nil, job, nil)

	id, ok := jc.PayloadUUID("project_id")
	if !ok || id.String() != "11111111-1111-4111-8111-111111111111" {
		t.Fatalf("PayloadUUID = %v ok=%v", id, ok)
	}
	if _, ok := jc.PayloadUUID("generation"); ok {
		t.Fatal("PayloadUUID parsed a non-UUID value")
	}
	if _, ok := jc.PayloadUUID("missing"); ok {
		t.Fatal("PayloadUUID found a missing key")
	}

	gen, ok := jc.PayloadString("generation")
	if !ok || gen != "minilm-384" {
		t.Fatalf("PayloadString = %q ok=%v", gen, ok)
	}
}

func TestContextPayloadMalformedJSON(t *testing.T) {
	job := &types.JobRun{Payload: datatypes.JSON([]byte(`not json`))}
	jc := NewContext(context.Background(), nil, job, nil)
	if got := jc.Payload(); len(got) != 0 {
		t.Fatalf("malformed payload decoded to %v, want empty map", got)
	}
}
