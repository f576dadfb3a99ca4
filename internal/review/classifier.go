package review

import "github.com/nurpe/lab-review/internal/model"

// Classify derives the result badge of a contract. It is the single
// classifier used by lists, exports and the review dialog.
func Classify(contract model.Contract) model.ResultStatus {
	if contract.FinalDocument == nil {
		return model.ResultNone
	}
	tasks := contract.TaskInfo.Tasks
	if len(tasks) == 0 {
		return model.ResultWaiting
	}
	if len(tasks[len(tasks)-1].Items) == 0 {
		return model.ResultWaiting
	}
	return model.ResultRejected
}

// ResolveActionableTask returns the id of the last task. The API appends
// rounds chronologically, so no reordering happens here.
func ResolveActionableTask(tasks []model.Task) (model.ID, bool) {
	if len(tasks) == 0 {
		return 0, false
	}
	id := tasks[len(tasks)-1].ID
	if !id.Valid() {
		return 0, false
	}
	return id, true
}
