package review

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/nurpe/lab-review/internal/gateway"
	"github.com/nurpe/lab-review/internal/model"
)

// flexString accepts strings, numbers, booleans and objects carrying a name.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
	case '{':
		for _, key := range []string{"full_name", "name", "username", "email"} {
			if value, ok := gateway.Dig(data, key); ok {
				var s flexString
				if err := s.UnmarshalJSON(value); err == nil && s != "" {
					*f = s
					return nil
				}
			}
		}
		*f = ""
	case '[':
		*f = ""
	default:
		*f = flexString(string(data))
	}
	return nil
}

// flexFloat accepts numbers and numeric strings; anything else decodes as 0.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(data); err != nil {
		return err
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(string(s)), 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexFloat(value)
	return nil
}

// flexID is an identifier that silently decodes malformed values as zero.
type flexID model.ID

func (f *flexID) UnmarshalJSON(data []byte) error {
	var id model.ID
	if err := id.UnmarshalJSON(data); err != nil {
		*f = 0
		return nil
	}
	*f = flexID(id)
	return nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTime(raw flexString) *time.Time {
	value := strings.TrimSpace(string(raw))
	if value == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return &parsed
		}
	}
	return nil
}

// elements splits a JSON array into its raw elements. Non-arrays yield nil.
func elements(raw json.RawMessage) []json.RawMessage {
	if !gateway.IsArray(raw) {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	return items
}

type wireTaskItem struct {
	Comments  json.RawMessage `json:"comments"`
	Comment   json.RawMessage `json:"comment"`
	Status    flexString      `json:"status"`
	FromUser  flexString      `json:"from_user"`
	ToUser    flexString      `json:"to_user"`
	CreatedAt flexString      `json:"created_at"`
}

func optionalText(raw json.RawMessage) *string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var s flexString
	if err := s.UnmarshalJSON(raw); err != nil {
		return nil
	}
	text := string(s)
	return &text
}

func decodeTaskItem(raw json.RawMessage) (model.TaskItem, bool) {
	var w wireTaskItem
	if !gateway.IsObject(raw) || json.Unmarshal(raw, &w) != nil {
		return model.TaskItem{}, false
	}
	comments := optionalText(w.Comments)
	if comments == nil {
		comments = optionalText(w.Comment)
	}
	return model.TaskItem{
		Comments:  comments,
		Status:    string(w.Status),
		FromUser:  string(w.FromUser),
		ToUser:    string(w.ToUser),
		CreatedAt: parseTime(w.CreatedAt),
	}, true
}

type wireTask struct {
	TaskID   flexID          `json:"task_id"`
	ID       flexID          `json:"id"`
	Status   flexString      `json:"status"`
	Comments flexString      `json:"comments"`
	Item     json.RawMessage `json:"task_item"`
	Items    json.RawMessage `json:"task_items"`
}

func decodeTask(raw json.RawMessage) (model.Task, bool) {
	var w wireTask
	if !gateway.IsObject(raw) || json.Unmarshal(raw, &w) != nil {
		return model.Task{}, false
	}
	id := model.ID(w.TaskID)
	if !id.Valid() {
		id = model.ID(w.ID)
	}
	itemsRaw := w.Item
	if !gateway.IsArray(itemsRaw) {
		itemsRaw = w.Items
	}
	rawItems := elements(itemsRaw)
	items := make([]model.TaskItem, 0, len(rawItems))
	for _, rawItem := range rawItems {
		if item, ok := decodeTaskItem(rawItem); ok {
			items = append(items, item)
		}
	}
	return model.Task{
		ID:       id,
		Status:   string(w.Status),
		Comments: string(w.Comments),
		Items:    items,
	}, true
}

// decodeTasks keeps the array order. Elements that are not task objects
// are dropped.
func decodeTasks(raw json.RawMessage) []model.Task {
	rawTasks := elements(raw)
	tasks := make([]model.Task, 0, len(rawTasks))
	for _, rawTask := range rawTasks {
		if task, ok := decodeTask(rawTask); ok {
			tasks = append(tasks, task)
		}
	}
	return tasks
}

// decodeFinalDocument treats any truthy value as a submitted result.
func decodeFinalDocument(raw json.RawMessage) *model.FinalDocument {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}
	switch {
	case gateway.IsObject(raw):
		var w struct {
			DocumentID flexID     `json:"document_id"`
			ID         flexID     `json:"id"`
			FileName   flexString `json:"file_name"`
			Name       flexString `json:"name"`
			URL        flexString `json:"url"`
			File       flexString `json:"file"`
		}
		if err := json.Unmarshal(raw, &w); err != nil {
			return &model.FinalDocument{}
		}
		doc := &model.FinalDocument{
			DocumentID: model.ID(w.DocumentID),
			FileName:   string(w.FileName),
			URL:        string(w.URL),
		}
		if !doc.DocumentID.Valid() {
			doc.DocumentID = model.ID(w.ID)
		}
		if doc.FileName == "" {
			doc.FileName = string(w.Name)
		}
		if doc.URL == "" {
			doc.URL = string(w.File)
		}
		return doc
	case gateway.IsArray(raw):
		if len(elements(raw)) == 0 {
			return nil
		}
		return &model.FinalDocument{}
	}
	switch string(raw) {
	case "null", "false", "0", `""`:
		return nil
	}
	return &model.FinalDocument{}
}
