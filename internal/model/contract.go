package model

import "time"

// Stage is the contract_status filter of the appointment list.
type Stage int

const (
	StageNew       Stage = 2
	StagePending   Stage = 5
	StageCompleted Stage = 6
)

func (s Stage) String() string {
	switch s {
	case StageNew:
		return "new"
	case StagePending:
		return "pending"
	case StageCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

type LabTest struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

// FinalDocument is the worker's uploaded result. Its presence on a contract
// means a result was submitted.
type FinalDocument struct {
	DocumentID ID     `json:"document_id"`
	FileName   string `json:"file_name,omitempty"`
	URL        string `json:"url,omitempty"`
}

type Contract struct {
	ID            ID             `json:"id"`
	Number        string         `json:"number"`
	ClientName    string         `json:"client_name"`
	WorkerPrice   float64        `json:"worker_price"`
	Deadline      *time.Time     `json:"deadline,omitempty"`
	Laboratory    []LabTest      `json:"laboratory"`
	FinalDocument *FinalDocument `json:"final_document"`
	TaskInfo      TaskInfo       `json:"task_info"`
	ResultStatus  ResultStatus   `json:"result_status"`
}

type ContractPage struct {
	Items []Contract `json:"items"`
	Total int        `json:"total"`
	Page  int        `json:"page"`
	Limit int        `json:"limit"`
	Stage Stage      `json:"stage"`
}
