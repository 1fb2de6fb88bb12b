// Package schema 샘플 이벤트 기반 이벤트 스키마 추론
package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/Kshitiz-Mhto/streampipes/pkg/models"
)

// ErrNoSamples 샘플 이벤트 없음
var ErrNoSamples = fmt.Errorf("no sample events to infer a schema from")

// FieldType 추론된 필드 타입
type FieldType string

const (
	FieldTypeString  FieldType = "string"
	FieldTypeInteger FieldType = "integer"
	FieldTypeNumber  FieldType = "number"
	FieldTypeBoolean FieldType = "boolean"
	FieldTypeObject  FieldType = "object"
	FieldTypeArray   FieldType = "array"
	FieldTypeNull    FieldType = "null"
)

// field 병합 중인 필드 정보
type field struct {
	typ      FieldType
	children map[string]*field // object
	items    *field            // array
}

// Infer 샘플 이벤트에서 스키마 생성
// 프로퍼티는 런타임 이름 순으로 정렬됨
func Infer(samples []map[string]any) (*models.EventSchema, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}

	root := &field{typ: FieldTypeObject, children: map[string]*field{}}
	for _, sample := range samples {
		mergeObject(root, sample)
	}

	return &models.EventSchema{EventProperties: toProperties(root.children)}, nil
}

// TypeOf 값의 필드 타입 판별 (JSON 디코딩 결과 기준)
func TypeOf(value any) FieldType {
	switch v := value.(type) {
	case nil:
		return FieldTypeNull
	case string:
		return FieldTypeString
	case bool:
		return FieldTypeBoolean
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return FieldTypeInteger
	case float32:
		return floatType(float64(v))
	case float64:
		return floatType(v)
	case json.Number:
		if _, err := v.Int64(); err == nil {
			return FieldTypeInteger
		}
		return FieldTypeNumber
	case map[string]any:
		return FieldTypeObject
	case []any:
		return FieldTypeArray
	default:
		return FieldTypeString
	}
}

func floatType(v float64) FieldType {
	if v == math.Trunc(v) && math.Abs(v) < 1<<53 {
		return FieldTypeInteger
	}
	return FieldTypeNumber
}

func mergeObject(target *field, obj map[string]any) {
	for key, value := range obj {
		child, ok := target.children[key]
		if !ok {
			child = &field{typ: FieldTypeNull}
			target.children[key] = child
		}
		mergeValue(child, value)
	}
}

func mergeValue(target *field, value any) {
	typ := TypeOf(value)
	target.typ = widen(target.typ, typ)

	switch v := value.(type) {
	case map[string]any:
		if target.typ != FieldTypeObject {
			return
		}
		if target.children == nil {
			target.children = map[string]*field{}
		}
		mergeObject(target, v)
	case []any:
		if target.typ != FieldTypeArray {
			return
		}
		if target.items == nil {
			target.items = &field{typ: FieldTypeNull}
		}
		for _, item := range v {
			mergeValue(target.items, item)
		}
	}
}

// widen 두 타입을 모두 표현할 수 있는 타입
func widen(current, next FieldType) FieldType {
	switch {
	case current == next:
		return current
	case current == FieldTypeNull:
		return next
	case next == FieldTypeNull:
		return current
	case (current == FieldTypeInteger && next == FieldTypeNumber) || (current == FieldTypeNumber && next == FieldTypeInteger):
		return FieldTypeNumber
	default:
		return FieldTypeString
	}
}

func toProperties(children map[string]*field) []models.EventProperty {
	names := make([]string, 0, len(children))
	for name := range children {
		names = append(names, name)
	}
	sort.Strings(names)

	props := make([]models.EventProperty, 0, len(names))
	for _, name := range names {
		props = append(props, toProperty(name, children[name]))
	}
	return props
}

func toProperty(name string, f *field) models.EventProperty {
	prop := models.EventProperty{
		RuntimeName: name,
		Label:       name,
	}

	switch f.typ {
	case FieldTypeObject:
		prop.PropertyType = models.PropertyTypeNested
		prop.EventProperties = toProperties(f.children)
	case FieldTypeArray:
		prop.PropertyType = models.PropertyTypeList
		if f.items != nil {
			switch f.items.typ {
			case FieldTypeObject:
				prop.EventProperties = toProperties(f.items.children)
			case FieldTypeArray, FieldTypeNull:
				prop.RuntimeType = models.XSDString
			default:
				prop.RuntimeType = runtimeType(f.items.typ)
			}
		}
	default:
		prop.PropertyType = models.PropertyTypePrimitive
		prop.RuntimeType = runtimeType(f.typ)
	}

	return prop
}

func runtimeType(t FieldType) string {
	switch t {
	case FieldTypeInteger:
		return models.XSDInteger
	case FieldTypeNumber:
		return models.XSDFloat
	case FieldTypeBoolean:
		return models.XSDBoolean
	default:
		return models.XSDString
	}
}
