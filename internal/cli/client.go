package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// GroupResponse — группа экспериментов из API.
type GroupResponse struct {
	ID               string               `json:"id"`
	Name             string               `json:"name"`
	Owner            string               `json:"owner"`
	SubmittedToQueue bool                 `json:"submitted_to_queue"`
	Experiments      []ExperimentResponse `json:"experiments"`
	CreatedAt        string               `json:"created_at"`
}

// ExperimentResponse — эксперимент из API.
type ExperimentResponse struct {
	ID            string               `json:"id"`
	Title         string               `json:"title"`
	State         string               `json:"state"`
	IsArchived    bool                 `json:"is_archived"`
	LotID         string               `json:"lot_id,omitempty"`
	MaterialIssue *MaterialIssueDetail `json:"material_issue,omitempty"`
	Stages        []json.RawMessage    `json:"stages"`
}

// MaterialIssueDetail — состояние выдачи материала из API.
type MaterialIssueDetail struct {
	IsRequired    bool   `json:"is_required"`
	ErrorComments string `json:"error_comments,omitempty"`
}

// --- Request types ---

// CancelExperimentsRequest — массовая отмена экспериментов.
type CancelExperimentsRequest struct {
	ExperimentIDs []string `json:"experiment_ids"`
	Comment       string   `json:"comment,omitempty"`
}

// UpdateGroupRequest — изменение метаданных группы.
type UpdateGroupRequest struct {
	Name  string `json:"name"`
	Owner string `json:"owner,omitempty"`
}

// ResumeExperimentRequest — возобновление эксперимента.
type ResumeExperimentRequest struct {
	Comment string `json:"comment,omitempty"`
}

// UpdateStateRequest — смена state экспериментов.
type UpdateStateRequest struct {
	ExperimentIDs []string `json:"experiment_ids"`
	State         string   `json:"state"`
}

// StatusCallbackRequest — callback тестера о смене статуса.
type StatusCallbackRequest struct {
	CorrelationID       string `json:"correlation_id"`
	Status              string `json:"status"`
	Comment             string `json:"comment,omitempty"`
	MaterialIssueFailed bool   `json:"material_issue_failed,omitempty"`
	IsIssueStep         bool   `json:"is_issue_step,omitempty"`
}

// ResultCallbackRequest — callback тестера с результатом condition.
type ResultCallbackRequest struct {
	CorrelationID string `json:"correlation_id"`
	Passed        bool   `json:"passed"`
	Comment       string `json:"comment,omitempty"`
}

// ProgressCallbackRequest — callback оркестратора о прогрессе.
type ProgressCallbackRequest struct {
	ExperimentID string `json:"experiment_id"`
	Status       string `json:"status"`
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для Waferline API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// --- Groups ---

// CreateGroup создаёт группу экспериментов.
// Тело запроса — сырой JSON (обычно из файла).
func (c *Client) CreateGroup(body json.RawMessage) (*GroupResponse, error) {
	var group GroupResponse
	err := c.post("/api/v1/groups", body, &group)
	return &group, err
}

// GetGroup возвращает группу по ID.
func (c *Client) GetGroup(id string) (*GroupResponse, error) {
	var group GroupResponse
	err := c.get("/api/v1/groups/"+id, &group)
	return &group, err
}

// UpdateGroup меняет метаданные группы.
func (c *Client) UpdateGroup(id string, req UpdateGroupRequest) (*GroupResponse, error) {
	var group GroupResponse
	err := c.put("/api/v1/groups/"+id, req, &group)
	return &group, err
}

// AddExperiments добавляет эксперименты в группу.
func (c *Client) AddExperiments(groupID string, body json.RawMessage) (*GroupResponse, error) {
	var group GroupResponse
	err := c.post("/api/v1/groups/"+groupID+"/experiments", body, &group)
	return &group, err
}

// CancelExperiments массово отменяет эксперименты.
func (c *Client) CancelExperiments(groupID string, req CancelExperimentsRequest) (*GroupResponse, error) {
	var group GroupResponse
	err := c.post("/api/v1/groups/"+groupID+"/experiments/cancel", req, &group)
	return &group, err
}

// DeleteExperiments отменяет и архивирует эксперименты.
func (c *Client) DeleteExperiments(groupID string, req CancelExperimentsRequest) (*GroupResponse, error) {
	var group GroupResponse
	err := c.post("/api/v1/groups/"+groupID+"/experiments/delete", req, &group)
	return &group, err
}

// ResumeExperiment возобновляет приостановленный эксперимент.
func (c *Client) ResumeExperiment(groupID, experimentID, comment string) (*ExperimentResponse, error) {
	var exp ExperimentResponse
	err := c.post("/api/v1/groups/"+groupID+"/experiments/"+experimentID+"/resume",
		ResumeExperimentRequest{Comment: comment}, &exp)
	return &exp, err
}

// UpdateState меняет state экспериментов группы.
func (c *Client) UpdateState(groupID string, req UpdateStateRequest) (*GroupResponse, error) {
	var group GroupResponse
	err := c.put("/api/v1/groups/"+groupID+"/experiments/state", req, &group)
	return &group, err
}

// --- Callbacks ---

// SendStatus отправляет callback смены статуса.
func (c *Client) SendStatus(req StatusCallbackRequest) (*ExperimentResponse, error) {
	var exp ExperimentResponse
	err := c.post("/api/v1/callbacks/status", req, &exp)
	return &exp, err
}

// SendResult отправляет callback результата condition.
func (c *Client) SendResult(req ResultCallbackRequest) (*ExperimentResponse, error) {
	var exp ExperimentResponse
	err := c.post("/api/v1/callbacks/result", req, &exp)
	return &exp, err
}

// SendProgress отправляет callback прогресса эксперимента.
func (c *Client) SendProgress(req ProgressCallbackRequest) error {
	return c.post("/api/v1/callbacks/progress", req, nil)
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) put(path string, body any, result any) error {
	return c.doData(http.MethodPut, path, body, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	// 204 No Content
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
