package editor

import "github.com/Kshitiz-Mhto/streampipes/pkg/models"

// ReplaceByID dom 토큰이 같은 엔트리를 element로 교체한 새 리스트 반환
// 입력 리스트는 변경하지 않으며 길이와 순서는 유지됨
func ReplaceByID(list []models.PipelineElement, id string, element models.PipelineElement) ([]models.PipelineElement, bool) {
	out := make([]models.PipelineElement, 0, len(list))
	found := false
	for _, entry := range list {
		if entry.Dom == id {
			out = append(out, element)
			found = true
			continue
		}
		out = append(out, entry)
	}
	return out, found
}
