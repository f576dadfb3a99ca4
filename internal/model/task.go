package model

import "time"

type TaskItem struct {
	Comments  *string    `json:"comments"`
	Status    string     `json:"status"`
	FromUser  string     `json:"from_user,omitempty"`
	ToUser    string     `json:"to_user,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// Task is one review round. Items are the decisions appended to it.
type Task struct {
	ID       ID         `json:"task_id"`
	Status   string     `json:"status"`
	Comments string     `json:"comments,omitempty"`
	Items    []TaskItem `json:"task_item"`
}

// TaskInfo is the normalised appointment info of a contract. Tasks are in
// the order the API returned them, oldest first.
type TaskInfo struct {
	Tasks         []Task         `json:"tasks"`
	FinalDocument *FinalDocument `json:"final_document,omitempty"`
}

type ResultStatus string

const (
	ResultNone     ResultStatus = "no_result"
	ResultWaiting  ResultStatus = "waiting"
	ResultRejected ResultStatus = "rejected"
)

type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
)

func (d Decision) Valid() bool {
	return d == DecisionAccept || d == DecisionReject
}
