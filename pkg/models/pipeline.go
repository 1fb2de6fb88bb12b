// Package models StreamPipes 파이프라인 와이어 모델
package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Pipeline 파이프라인 정의
type Pipeline struct {
	ID                 string            `json:"_id,omitempty" yaml:"id,omitempty"`
	Rev                string            `json:"_rev,omitempty" yaml:"rev,omitempty"`
	Name               string            `json:"name" yaml:"name"`
	Description        string            `json:"description,omitempty" yaml:"description,omitempty"`
	Running            bool              `json:"running" yaml:"running"`
	StartedAt          int64             `json:"startedAt,omitempty" yaml:"startedAt,omitempty"`
	CreatedAt          int64             `json:"createdAt,omitempty" yaml:"createdAt,omitempty"`
	CreatedByUser      string            `json:"createdByUser,omitempty" yaml:"createdByUser,omitempty"`
	PublicElement      bool              `json:"publicElement" yaml:"publicElement"`
	PipelineCategories []string          `json:"pipelineCategories,omitempty" yaml:"pipelineCategories,omitempty"`
	Streams            []DataStream      `json:"streams,omitempty" yaml:"streams,omitempty"`
	Sepas              []PipelineElement `json:"sepas" yaml:"sepas"`
	Actions            []PipelineElement `json:"actions" yaml:"actions"`
}

// UnmarshalJSON 디코딩 후 리스트 위치에 따라 엘리먼트 종류 보정
func (p *Pipeline) UnmarshalJSON(data []byte) error {
	type plain Pipeline
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*p = Pipeline(decoded)
	p.NormalizeKinds()
	return nil
}

// NormalizeKinds 종류가 비어 있는 엘리먼트에 리스트 기준 종류 지정
func (p *Pipeline) NormalizeKinds() {
	for i := range p.Sepas {
		if p.Sepas[i].Kind == "" {
			p.Sepas[i].Kind = ElementKindProcessor
		}
	}
	for i := range p.Actions {
		if p.Actions[i].Kind == "" {
			p.Actions[i].Kind = ElementKindSink
		}
	}
}

// Elements 종류별 엘리먼트 리스트 반환
func (p *Pipeline) Elements(kind ElementKind) []PipelineElement {
	switch kind {
	case ElementKindProcessor:
		return p.Sepas
	case ElementKindSink:
		return p.Actions
	default:
		return nil
	}
}

// SetElements 종류별 엘리먼트 리스트 교체
func (p *Pipeline) SetElements(kind ElementKind, elements []PipelineElement) error {
	switch kind {
	case ElementKindProcessor:
		p.Sepas = elements
	case ElementKindSink:
		p.Actions = elements
	default:
		return fmt.Errorf("unknown element kind %q", string(kind))
	}
	return nil
}

// AllElements 프로세서와 싱크 전체
func (p *Pipeline) AllElements() []PipelineElement {
	all := make([]PipelineElement, 0, len(p.Sepas)+len(p.Actions))
	all = append(all, p.Sepas...)
	return append(all, p.Actions...)
}

// FindElement dom 토큰으로 엘리먼트 검색
func (p *Pipeline) FindElement(kind ElementKind, dom string) (*PipelineElement, bool) {
	elements := p.Elements(kind)
	for i := range elements {
		if elements[i].Dom == dom {
			return &elements[i], true
		}
	}
	return nil, false
}

// Validate 식별 토큰 중복과 종류 불일치 검사
func (p *Pipeline) Validate() error {
	var problems []string

	check := func(list string, kind ElementKind, elements []PipelineElement) {
		seen := make(map[string]bool, len(elements))
		for _, e := range elements {
			if e.Dom == "" {
				problems = append(problems, fmt.Sprintf("%s: element without dom", list))
				continue
			}
			if seen[e.Dom] {
				problems = append(problems, fmt.Sprintf("%s: duplicate dom %q", list, e.Dom))
			}
			seen[e.Dom] = true
			if e.Kind != kind {
				problems = append(problems, fmt.Sprintf("%s: element %q has kind %q", list, e.Dom, e.Kind))
			}
		}
	}

	check("sepas", ElementKindProcessor, p.Sepas)
	check("actions", ElementKindSink, p.Actions)

	if len(problems) > 0 {
		return fmt.Errorf("invalid pipeline: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Clone 깊은 복사
func (p *Pipeline) Clone() *Pipeline {
	if p == nil {
		return nil
	}
	out := *p
	out.PipelineCategories = append([]string(nil), p.PipelineCategories...)
	if p.Streams != nil {
		out.Streams = make([]DataStream, len(p.Streams))
		for i, s := range p.Streams {
			out.Streams[i] = s
			if s.EventSchema != nil {
				schema := s.EventSchema.Clone()
				out.Streams[i].EventSchema = &schema
			}
		}
	}
	out.Sepas = cloneElements(p.Sepas)
	out.Actions = cloneElements(p.Actions)
	return &out
}

func cloneElements(elements []PipelineElement) []PipelineElement {
	if elements == nil {
		return nil
	}
	out := make([]PipelineElement, len(elements))
	for i, e := range elements {
		out[i] = e.Clone()
	}
	return out
}
