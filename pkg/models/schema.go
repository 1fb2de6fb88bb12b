package models

// PropertyType 이벤트 프로퍼티 종류
type PropertyType string

const (
	PropertyTypePrimitive PropertyType = "primitive"
	PropertyTypeList      PropertyType = "list"
	PropertyTypeNested    PropertyType = "nested"
)

// XSD 런타임 타입
const (
	XSDString  = "http://www.w3.org/2001/XMLSchema#string"
	XSDInteger = "http://www.w3.org/2001/XMLSchema#integer"
	XSDLong    = "http://www.w3.org/2001/XMLSchema#long"
	XSDFloat   = "http://www.w3.org/2001/XMLSchema#float"
	XSDBoolean = "http://www.w3.org/2001/XMLSchema#boolean"
)

// EventProperty 이벤트 필드 정의
type EventProperty struct {
	ElementID        string          `json:"elementId,omitempty" yaml:"elementId,omitempty"`
	RuntimeName      string          `json:"runtimeName" yaml:"runtimeName"`
	Label            string          `json:"label,omitempty" yaml:"label,omitempty"`
	Description      string          `json:"description,omitempty" yaml:"description,omitempty"`
	PropertyType     PropertyType    `json:"propertyType" yaml:"propertyType"`
	RuntimeType      string          `json:"runtimeType,omitempty" yaml:"runtimeType,omitempty"`
	DomainProperties []string        `json:"domainProperties,omitempty" yaml:"domainProperties,omitempty"`
	EventProperties  []EventProperty `json:"eventProperties,omitempty" yaml:"eventProperties,omitempty"`
}

// EventSchema 스트림 레코드 구조
type EventSchema struct {
	EventProperties []EventProperty `json:"eventProperties" yaml:"eventProperties"`
}

// NewEventSchema 빈 스키마 생성
func NewEventSchema() *EventSchema {
	return &EventSchema{EventProperties: []EventProperty{}}
}

// RuntimeNames 최상위 프로퍼티 이름 목록
func (s *EventSchema) RuntimeNames() []string {
	names := make([]string, 0, len(s.EventProperties))
	for _, p := range s.EventProperties {
		names = append(names, p.RuntimeName)
	}
	return names
}

// Clone 깊은 복사
func (s EventSchema) Clone() EventSchema {
	return EventSchema{EventProperties: cloneProperties(s.EventProperties)}
}

func cloneProperties(props []EventProperty) []EventProperty {
	if props == nil {
		return nil
	}
	out := make([]EventProperty, len(props))
	for i, p := range props {
		out[i] = p
		out[i].DomainProperties = append([]string(nil), p.DomainProperties...)
		out[i].EventProperties = cloneProperties(p.EventProperties)
	}
	return out
}
