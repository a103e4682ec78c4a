package entity

import "encoding/json"

// KanbanTask is one card on a kanban board.
type KanbanTask struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	IsCompleted bool   `json:"isCompleted,omitempty"`
}

// KanbanColumn is one column of a kanban board note's payload.
type KanbanColumn struct {
	ID    string       `json:"id"`
	Title string       `json:"title"`
	Tasks []KanbanTask `json:"tasks"`
	Color string       `json:"color"`
}

// CalendarEvent is one entry in a calendar note's payload.
type CalendarEvent struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	IsCompleted bool   `json:"isCompleted"`
}

// ImageItem is one entry in an image board note's payload.
type ImageItem struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	Caption   string `json:"caption,omitempty"`
	CreatedAt int64  `json:"createdAt"`
}

// BoardColumns decodes a board note's payload. The sync engine never calls
// this; it exists for rendering-layer callers.
func (n *Note) BoardColumns() ([]KanbanColumn, error) {
	var columns []KanbanColumn
	if err := json.Unmarshal([]byte(n.Content), &columns); err != nil {
		return nil, err
	}
	return columns, nil
}

// CalendarEvents decodes a calendar note's payload, keyed by ISO date.
func (n *Note) CalendarEvents() (map[string][]CalendarEvent, error) {
	events := make(map[string][]CalendarEvent)
	if err := json.Unmarshal([]byte(n.Content), &events); err != nil {
		return nil, err
	}
	return events, nil
}

// Images decodes an image board note's payload.
func (n *Note) Images() ([]ImageItem, error) {
	var images []ImageItem
	if err := json.Unmarshal([]byte(n.Content), &images); err != nil {
		return nil, err
	}
	return images, nil
}
