package dto

import (
	"fmt"
	"time"

	"github.com/yukikurage/projecthub-api/internal/repository"
)

const SearchResultTask = "task"

type SearchResultDTO struct {
	Type       string    `json:"type"`
	ID         uint64    `json:"id"`
	Title      string    `json:"title"`
	Subtitle   string    `json:"subtitle"`
	ProjectID  uint64    `json:"project_id"`
	ProjectKey string    `json:"project_key"`
	TaskNumber int64     `json:"task_number"`
	Status     string    `json:"status"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type SearchResponse struct {
	Results []SearchResultDTO `json:"results"`
	Total   int               `json:"total"`
	Q       string            `json:"q"`
}

func ToSearchResponse(q string, rows []repository.TaskSearchRow) SearchResponse {
	results := make([]SearchResultDTO, len(rows))
	for i, row := range rows {
		results[i] = SearchResultDTO{
			Type:       SearchResultTask,
			ID:         row.ID,
			Title:      row.Title,
			Subtitle:   fmt.Sprintf("%s-%d · %s", row.ProjectKey, row.Number, row.StatusName),
			ProjectID:  row.ProjectID,
			ProjectKey: row.ProjectKey,
			TaskNumber: row.Number,
			Status:     row.StatusName,
			UpdatedAt:  row.UpdatedAt,
		}
	}
	return SearchResponse{Results: results, Total: len(results), Q: q}
}
