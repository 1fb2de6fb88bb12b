package models

import (
	"encoding/json"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestPipelineElementTypeInfo(t *testing.T) {
	tests := []struct {
		name          string
		element       *PipelineElement
		wantInvocable bool
		wantProcessor bool
	}{
		{"processor", &PipelineElement{Kind: ElementKindProcessor}, true, true},
		{"sink", &PipelineElement{Kind: ElementKindSink}, true, false},
		{"no kind", &PipelineElement{}, false, false},
		{"nil", nil, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.element.IsInvocable(); got != tt.wantInvocable {
				t.Errorf("IsInvocable: expected %v, got %v", tt.wantInvocable, got)
			}
			if got := tt.element.IsProcessor(); got != tt.wantProcessor {
				t.Errorf("IsProcessor: expected %v, got %v", tt.wantProcessor, got)
			}
		})
	}
}

func TestEventSchemasConcatenatesInputStreams(t *testing.T) {
	e := &PipelineElement{
		Kind: ElementKindProcessor,
		InputStreams: []DataStream{
			{EventSchema: &EventSchema{EventProperties: []EventProperty{{RuntimeName: "a"}}}},
			{},
			{EventSchema: &EventSchema{EventProperties: []EventProperty{{RuntimeName: "b"}}}},
		},
	}

	schemas := e.EventSchemas()
	if len(schemas) != 2 {
		t.Fatalf("expected 2 schemas, got %d", len(schemas))
	}
	if schemas[0].EventProperties[0].RuntimeName != "a" || schemas[1].EventProperties[0].RuntimeName != "b" {
		t.Errorf("schemas out of order: %+v", schemas)
	}

	var empty *PipelineElement
	if got := empty.EventSchemas(); got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", got)
	}
}

func TestStaticPropertyLookup(t *testing.T) {
	e := &PipelineElement{StaticProperties: []StaticProperty{{InternalName: "threshold", Value: "10"}}}

	p, ok := e.StaticProperty("threshold")
	if !ok {
		t.Fatal("expected property to be found")
	}
	p.Value = "20"
	if e.StaticProperties[0].Value != "20" {
		t.Error("expected lookup to return a pointer into the element")
	}

	if _, ok := e.StaticProperty("missing"); ok {
		t.Error("expected missing property not to be found")
	}
}

func TestElementKindEncoding(t *testing.T) {
	e := PipelineElement{Kind: ElementKindProcessor, Dom: "p1"}

	out, err := yaml.Marshal(e)
	if err != nil {
		t.Fatalf("yaml marshal: %v", err)
	}
	if !strings.Contains(string(out), "kind: processor\n") {
		t.Errorf("expected short kind in yaml, got %q", out)
	}

	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("json marshal: %v", err)
	}
	if !strings.Contains(string(data), `"@class":"`+ProcessorClass+`"`) {
		t.Errorf("expected class name in json, got %s", data)
	}

	tests := []struct {
		name  string
		input string
		want  ElementKind
	}{
		{"short name", "kind: sink\ndom: s1\n", ElementKindSink},
		{"class name", "kind: " + ProcessorClass + "\ndom: p1\n", ElementKindProcessor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got PipelineElement
			if err := yaml.Unmarshal([]byte(tt.input), &got); err != nil {
				t.Fatalf("yaml unmarshal: %v", err)
			}
			if got.Kind != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got.Kind)
			}
		})
	}

	var bad PipelineElement
	if err := yaml.Unmarshal([]byte("kind: stream\n"), &bad); err == nil {
		t.Error("expected error for unknown kind")
	}
}
