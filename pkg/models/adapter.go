package models

// DataSetDescription 어댑터 데이터셋
type DataSetDescription struct {
	ElementID    string           `json:"elementId,omitempty" yaml:"elementId,omitempty"`
	EventSchema  *EventSchema     `json:"eventSchema,omitempty" yaml:"eventSchema,omitempty"`
	SampleEvents []map[string]any `json:"sampleEvents,omitempty" yaml:"sampleEvents,omitempty"`
}

// AdapterDescription 데이터 소스 커넥터 설정
type AdapterDescription struct {
	ElementID   string              `json:"elementId,omitempty" yaml:"elementId,omitempty"`
	Name        string              `json:"name" yaml:"name"`
	Description string              `json:"description,omitempty" yaml:"description,omitempty"`
	AppID       string              `json:"appId,omitempty" yaml:"appId,omitempty"`
	Config      []StaticProperty    `json:"config,omitempty" yaml:"config,omitempty"`
	DataSet     *DataSetDescription `json:"dataSet,omitempty" yaml:"dataSet,omitempty"`
}
