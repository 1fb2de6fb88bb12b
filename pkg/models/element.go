package models

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ElementKind 파이프라인 엘리먼트 종류
type ElementKind string

const (
	ElementKindProcessor ElementKind = "processor" // 데이터 프로세서 (sepa)
	ElementKindSink      ElementKind = "sink"      // 데이터 싱크 (action)
)

// 직렬화 시 사용되는 StreamPipes 클래스 이름
const (
	ProcessorClass = "org.apache.streampipes.model.graph.DataProcessorInvocation"
	SinkClass      = "org.apache.streampipes.model.graph.DataSinkInvocation"
)

// MarshalText ElementKind를 @class 값으로 변환
func (k ElementKind) MarshalText() ([]byte, error) {
	switch k {
	case ElementKindProcessor:
		return []byte(ProcessorClass), nil
	case ElementKindSink:
		return []byte(SinkClass), nil
	case "":
		return []byte{}, nil
	default:
		return nil, fmt.Errorf("unknown element kind %q", string(k))
	}
}

// MarshalYAML YAML 문서에서는 짧은 이름(processor, sink) 사용
func (k ElementKind) MarshalYAML() (any, error) {
	switch k {
	case ElementKindProcessor, ElementKindSink, "":
		return string(k), nil
	default:
		return nil, fmt.Errorf("unknown element kind %q", string(k))
	}
}

// UnmarshalYAML 짧은 이름과 @class 값 모두 허용
func (k *ElementKind) UnmarshalYAML(value *yaml.Node) error {
	return k.UnmarshalText([]byte(value.Value))
}

// UnmarshalText @class 값을 ElementKind로 변환
func (k *ElementKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case ProcessorClass, string(ElementKindProcessor):
		*k = ElementKindProcessor
	case SinkClass, string(ElementKindSink):
		*k = ElementKindSink
	case "":
		*k = ""
	default:
		return fmt.Errorf("unknown element class %q", string(text))
	}
	return nil
}

// StaticProperty 엘리먼트 설정값
type StaticProperty struct {
	InternalName string   `json:"internalName" yaml:"internalName"`
	Label        string   `json:"label,omitempty" yaml:"label,omitempty"`
	Description  string   `json:"description,omitempty" yaml:"description,omitempty"`
	Type         string   `json:"type,omitempty" yaml:"type,omitempty"`
	Value        string   `json:"value" yaml:"value"`
	Options      []string `json:"options,omitempty" yaml:"options,omitempty"`
}

// EventGrounding 스트림 전송 정보
type EventGrounding struct {
	TopicName string `json:"topicName,omitempty" yaml:"topicName,omitempty"`
}

// DataStream 입력/출력 데이터 스트림
type DataStream struct {
	ElementID      string         `json:"elementId,omitempty" yaml:"elementId,omitempty"`
	Name           string         `json:"name,omitempty" yaml:"name,omitempty"`
	EventSchema    *EventSchema   `json:"eventSchema,omitempty" yaml:"eventSchema,omitempty"`
	EventGrounding EventGrounding `json:"eventGrounding" yaml:"eventGrounding"`
}

// PipelineElement 프로세서 또는 싱크 인보케이션
// Dom 값이 파이프라인 내 식별 토큰
type PipelineElement struct {
	Kind                   ElementKind      `json:"@class" yaml:"kind"`
	Dom                    string           `json:"dom" yaml:"dom"`
	ElementID              string           `json:"elementId,omitempty" yaml:"elementId,omitempty"`
	AppID                  string           `json:"appId,omitempty" yaml:"appId,omitempty"`
	Name                   string           `json:"name,omitempty" yaml:"name,omitempty"`
	Description            string           `json:"description,omitempty" yaml:"description,omitempty"`
	InputStreams           []DataStream     `json:"inputStreams,omitempty" yaml:"inputStreams,omitempty"`
	StaticProperties       []StaticProperty `json:"staticProperties,omitempty" yaml:"staticProperties,omitempty"`
	DeploymentTargetNodeID string           `json:"deploymentTargetNodeId,omitempty" yaml:"deploymentTargetNodeId,omitempty"`
	CorrespondingPipeline  string           `json:"correspondingPipeline,omitempty" yaml:"correspondingPipeline,omitempty"`
}

// IsProcessor 프로세서 여부
func (e *PipelineElement) IsProcessor() bool {
	return e != nil && e.Kind == ElementKindProcessor
}

// IsInvocable 프로세서 또는 싱크 여부
func (e *PipelineElement) IsInvocable() bool {
	if e == nil {
		return false
	}
	switch e.Kind {
	case ElementKindProcessor, ElementKindSink:
		return true
	default:
		return false
	}
}

// EventSchemas 모든 입력 스트림의 스키마를 순서대로 반환
func (e *PipelineElement) EventSchemas() []EventSchema {
	schemas := []EventSchema{}
	if e == nil {
		return schemas
	}
	for _, stream := range e.InputStreams {
		if stream.EventSchema != nil {
			schemas = append(schemas, *stream.EventSchema)
		}
	}
	return schemas
}

// StaticProperty 내부 이름으로 설정값 조회
func (e *PipelineElement) StaticProperty(internalName string) (*StaticProperty, bool) {
	for i := range e.StaticProperties {
		if e.StaticProperties[i].InternalName == internalName {
			return &e.StaticProperties[i], true
		}
	}
	return nil, false
}

// Clone 깊은 복사
func (e PipelineElement) Clone() PipelineElement {
	out := e
	if e.InputStreams != nil {
		out.InputStreams = make([]DataStream, len(e.InputStreams))
		for i, s := range e.InputStreams {
			out.InputStreams[i] = s
			if s.EventSchema != nil {
				schema := s.EventSchema.Clone()
				out.InputStreams[i].EventSchema = &schema
			}
		}
	}
	if e.StaticProperties != nil {
		out.StaticProperties = make([]StaticProperty, len(e.StaticProperties))
		for i, p := range e.StaticProperties {
			out.StaticProperties[i] = p
			out.StaticProperties[i].Options = append([]string(nil), p.Options...)
		}
	}
	return out
}
