package models

// 상태 메시지 타입
const (
	StatusPipelineStarted      = "PIPELINE_STARTED"
	StatusPipelineStopped      = "PIPELINE_STOPPED"
	StatusPipelineUpdated      = "PIPELINE_UPDATED"
	StatusPipelineReconfigured = "PIPELINE_RECONFIGURED"
	StatusPipelineMigrated     = "PIPELINE_MIGRATED"
	StatusPipelineFailed       = "PIPELINE_FAILED"
)

// PipelineElementStatus 엘리먼트별 실행 결과
type PipelineElementStatus struct {
	ElementID       string `json:"elementId"`
	ElementName     string `json:"elementName"`
	OptionalMessage string `json:"optionalMessage,omitempty"`
	Success         bool   `json:"success"`
}

// PipelineOperationStatus 라이프사이클 동작 결과
type PipelineOperationStatus struct {
	PipelineID    string                  `json:"pipelineId"`
	PipelineName  string                  `json:"pipelineName"`
	Title         string                  `json:"title"`
	Success       bool                    `json:"success"`
	ElementStatus []PipelineElementStatus `json:"elementStatus"`
}

// FailedElements 실패한 엘리먼트 목록
func (s *PipelineOperationStatus) FailedElements() []PipelineElementStatus {
	var failed []PipelineElementStatus
	for _, es := range s.ElementStatus {
		if !es.Success {
			failed = append(failed, es)
		}
	}
	return failed
}

// Notification 사용자 알림
type Notification struct {
	Title                 string `json:"title"`
	Description           string `json:"description,omitempty"`
	AdditionalInformation string `json:"additionalInformation,omitempty"`
}

// Message 저장/수정 결과 메시지
type Message struct {
	Success       bool           `json:"success"`
	ElementName   string         `json:"elementName,omitempty"`
	Notifications []Notification `json:"notifications"`
}

// SuccessMessage 성공 메시지 생성
func SuccessMessage(elementName string, notifications ...Notification) *Message {
	if notifications == nil {
		notifications = []Notification{}
	}
	return &Message{Success: true, ElementName: elementName, Notifications: notifications}
}

// PipelineStatusMessage 파이프라인 상태 이력
type PipelineStatusMessage struct {
	PipelineID  string `json:"pipelineId"`
	Timestamp   int64  `json:"timestamp"`
	MessageType string `json:"messageType"`
	Message     string `json:"message"`
}

// PipelineCategory 파이프라인 분류
type PipelineCategory struct {
	ID                  string `json:"_id,omitempty" yaml:"id,omitempty"`
	Rev                 string `json:"_rev,omitempty" yaml:"rev,omitempty"`
	CategoryName        string `json:"categoryName" yaml:"categoryName"`
	CategoryDescription string `json:"categoryDescription,omitempty" yaml:"categoryDescription,omitempty"`
}
