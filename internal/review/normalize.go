package review

import (
	"encoding/json"
	"strings"

	"github.com/nurpe/lab-review/internal/gateway"
	"github.com/nurpe/lab-review/internal/model"
)

// The remote API nests the same payload differently depending on the
// endpoint. Each normaliser below owns the shape drift of one endpoint.

var taskPaths = [][]string{
	{"task_info", "tasks"},
	{"tasks"},
	{"data", "tasks"},
	{"data", "task_info", "tasks"},
	{"result", "tasks"},
	{"result", "task_info", "tasks"},
	{"data", "result", "tasks"},
	{"data", "result", "task_info", "tasks"},
}

var finalDocumentPaths = [][]string{
	{"final_document"},
	{"data", "final_document"},
	{"result", "final_document"},
	{"contract", "final_document"},
	{"data", "contract", "final_document"},
}

// normalizeTaskInfo maps an appointment/info body to TaskInfo. Unknown
// shapes produce an empty task list.
func normalizeTaskInfo(body []byte) model.TaskInfo {
	info := model.TaskInfo{Tasks: []model.Task{}}
	if gateway.IsArray(body) {
		info.Tasks = decodeTasks(body)
		return info
	}
	for _, path := range taskPaths {
		if raw, ok := gateway.Dig(body, path...); ok && gateway.IsArray(raw) {
			info.Tasks = decodeTasks(raw)
			break
		}
	}
	for _, path := range finalDocumentPaths {
		if raw, ok := gateway.Dig(body, path...); ok {
			info.FinalDocument = decodeFinalDocument(raw)
			break
		}
	}
	return info
}

var pageEnvelopes = [][]string{
	{"result"},
	{"data", "result"},
	{"data"},
	{},
}

var itemKeys = []string{"items", "results", "data", "contracts", "rows"}

var totalKeys = []string{"total", "count", "total_count", "totalCount"}

// normalizeContractPage maps an appointment/all/list body to contracts and
// the server side total. A total that cannot be found falls back to the
// number of rows.
func normalizeContractPage(body []byte) ([]model.Contract, int) {
	for _, envelope := range pageEnvelopes {
		root, ok := gateway.Dig(body, envelope...)
		if !ok {
			continue
		}
		if gateway.IsArray(root) {
			contracts := decodeContracts(root)
			return contracts, pageTotal(body, len(contracts))
		}
		for _, key := range itemKeys {
			raw, ok := gateway.Dig(root, key)
			if !ok || !gateway.IsArray(raw) {
				continue
			}
			contracts := decodeContracts(raw)
			return contracts, pageTotal(root, len(contracts))
		}
	}
	return []model.Contract{}, 0
}

func pageTotal(root json.RawMessage, fallback int) int {
	for _, key := range totalKeys {
		raw, ok := gateway.Dig(root, key)
		if !ok {
			continue
		}
		var total flexFloat
		if err := json.Unmarshal(raw, &total); err == nil && total > 0 {
			return int(total)
		}
	}
	return fallback
}

type wireContract struct {
	ID             flexID          `json:"id"`
	ContractID     flexID          `json:"contract_id"`
	Number         flexString      `json:"number"`
	ContractNumber flexString      `json:"contract_number"`
	ClientName     flexString      `json:"client_name"`
	Client         flexString      `json:"client"`
	WorkerPrice    flexFloat       `json:"worker_price"`
	Deadline       flexString      `json:"deadline"`
	Laboratory     json.RawMessage `json:"laboratory"`
	FinalDocument  json.RawMessage `json:"final_document"`
	TaskInfo       json.RawMessage `json:"task_info"`
}

func decodeContracts(raw json.RawMessage) []model.Contract {
	rawContracts := elements(raw)
	contracts := make([]model.Contract, 0, len(rawContracts))
	for _, rawContract := range rawContracts {
		if contract, ok := decodeContract(rawContract); ok {
			contracts = append(contracts, contract)
		}
	}
	return contracts
}

func decodeContract(raw json.RawMessage) (model.Contract, bool) {
	var w wireContract
	if !gateway.IsObject(raw) || json.Unmarshal(raw, &w) != nil {
		return model.Contract{}, false
	}

	contract := model.Contract{
		ID:            model.ID(w.ID),
		Number:        string(w.Number),
		ClientName:    string(w.ClientName),
		WorkerPrice:   float64(w.WorkerPrice),
		Deadline:      parseTime(w.Deadline),
		Laboratory:    decodeLabTests(w.Laboratory),
		FinalDocument: decodeFinalDocument(w.FinalDocument),
		TaskInfo:      model.TaskInfo{Tasks: []model.Task{}},
	}
	if !contract.ID.Valid() {
		contract.ID = model.ID(w.ContractID)
	}
	if contract.Number == "" {
		contract.Number = string(w.ContractNumber)
	}
	if contract.ClientName == "" {
		contract.ClientName = string(w.Client)
	}
	if tasks, ok := gateway.Dig(w.TaskInfo, "tasks"); ok {
		contract.TaskInfo.Tasks = decodeTasks(tasks)
	} else if gateway.IsArray(w.TaskInfo) {
		contract.TaskInfo.Tasks = decodeTasks(w.TaskInfo)
	}
	contract.ResultStatus = Classify(contract)
	return contract, true
}

func decodeLabTests(raw json.RawMessage) []model.LabTest {
	rawTests := elements(raw)
	tests := make([]model.LabTest, 0, len(rawTests))
	for _, rawTest := range rawTests {
		if !gateway.IsObject(rawTest) {
			var name flexString
			if err := json.Unmarshal(rawTest, &name); err == nil && name != "" {
				tests = append(tests, model.LabTest{Name: string(name)})
			}
			continue
		}
		var w struct {
			ID       flexID     `json:"id"`
			Name     flexString `json:"name"`
			Title    flexString `json:"title"`
			TestName flexString `json:"test_name"`
		}
		if err := json.Unmarshal(rawTest, &w); err != nil {
			continue
		}
		name := strings.TrimSpace(string(w.Name))
		if name == "" {
			name = strings.TrimSpace(string(w.Title))
		}
		if name == "" {
			name = strings.TrimSpace(string(w.TestName))
		}
		tests = append(tests, model.LabTest{ID: model.ID(w.ID), Name: name})
	}
	return tests
}

var successFlagPaths = [][]string{
	{"success"},
	{"data", "success"},
	{"result", "success"},
	{"ok"},
}

// decisionSucceeded interprets a 2xx body of the accept/cancel endpoints.
// An empty body, or one without any marker, counts as success; an explicit
// false flag or an error status wins over the HTTP code.
func decisionSucceeded(body []byte) (bool, string) {
	message := gateway.ExtractMessage(body)
	for _, path := range successFlagPaths {
		raw, ok := gateway.Dig(body, path...)
		if !ok {
			continue
		}
		if flag, ok := parseFlag(raw); ok {
			return flag, message
		}
	}
	if raw, ok := gateway.Dig(body, "status"); ok {
		var status flexString
		if err := json.Unmarshal(raw, &status); err == nil {
			switch strings.ToLower(string(status)) {
			case "error", "fail", "failed", "false":
				return false, message
			}
		}
	}
	return true, message
}

// parseFlag reads a success marker sent as a boolean, a number or a string.
func parseFlag(raw json.RawMessage) (bool, bool) {
	var text flexString
	if err := json.Unmarshal(raw, &text); err != nil {
		return false, false
	}
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "true", "1", "yes", "ok":
		return true, true
	case "false", "0", "no":
		return false, true
	default:
		return false, false
	}
}
